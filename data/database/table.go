package database

// Table 文档模型对应的集合名
type Table interface {
	GetTableName() string
}
