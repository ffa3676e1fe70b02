package app

import (
	"context"
	"os"

	"CollabNotes/data/database/mgo/mongoutil"
	"CollabNotes/global/config"
	candidatemodel "CollabNotes/module/candidate/model"
	candidatestore "CollabNotes/module/candidate/store"
	notestore "CollabNotes/module/note/store"
	notificationstore "CollabNotes/module/notification/store"
	usermodel "CollabNotes/module/user/model"
	userstore "CollabNotes/module/user/store"
	"CollabNotes/service/chat"
	"CollabNotes/tools/errs"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Seed memory 驱动的初始数据
type Seed struct {
	Users      []SeedUser      `yaml:"users"`
	Candidates []SeedCandidate `yaml:"candidates"`
}

type SeedUser struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Role     string `yaml:"role"`
	Inactive bool   `yaml:"inactive"`
}

type SeedCandidate struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Position string `yaml:"position"`
	Status   string `yaml:"status"`
}

func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.WrapMsg(err, "read seed file failed", "path", path)
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, errs.WrapMsg(err, "parse seed file failed", "path", path)
	}
	return &seed, nil
}

// MemoryStores 进程内存储，可选导入 seed
func MemoryStores(seed *Seed) chat.Stores {
	users := userstore.NewMemoryStore()
	cands := candidatestore.NewMemoryStore()
	if seed != nil {
		for _, u := range seed.Users {
			role := u.Role
			if role == "" {
				role = usermodel.RoleRecruiter
			}
			users.Add(usermodel.User{ID: u.ID, Name: u.Name, Email: u.Email, Role: role, IsActive: !u.Inactive})
		}
		for _, c := range seed.Candidates {
			cands.Add(candidatemodel.Candidate{ID: c.ID, Name: c.Name, Email: c.Email, Position: c.Position, Status: c.Status})
		}
	}
	return chat.Stores{
		Users:         users,
		Threads:       cands,
		Notes:         notestore.NewMemoryStore(),
		Notifications: notificationstore.NewMemoryStore(),
	}
}

// openStores 按 store.driver 构建存储，mongo 连接登记到关闭列表
func (a *App) openStores(ctx context.Context) (chat.Stores, error) {
	switch a.conf.Store.Driver {
	case config.StoreDriverMongo:
		cli, err := mongoutil.NewMongoDB(ctx, mongoutil.FromAppConfig(a.conf.Mongo))
		if err != nil {
			return chat.Stores{}, err
		}
		a.onClose("mongo", func(ctx context.Context) error { return cli.Close(ctx) })
		a.readyChecks = append(a.readyChecks, chat.WithReadyCheck("mongo", cli.Ping))
		db := cli.GetDB()
		a.log.Info("mongo connected", zap.String("database", a.conf.Mongo.Database))
		return chat.Stores{
			Users:         userstore.NewMongoStore(db),
			Threads:       candidatestore.NewMongoStore(db),
			Notes:         notestore.NewMongoStore(db),
			Notifications: notificationstore.NewMongoStore(db),
		}, nil
	default:
		var seed *Seed
		if a.conf.Store.SeedFile != "" {
			s, err := LoadSeed(a.conf.Store.SeedFile)
			if err != nil {
				return chat.Stores{}, err
			}
			seed = s
			a.log.Info("memory store seeded", zap.Int("users", len(s.Users)), zap.Int("candidates", len(s.Candidates)))
		}
		return MemoryStores(seed), nil
	}
}
