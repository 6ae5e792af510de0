// Package migrations 按方言内嵌的数据库迁移脚本，每个文件只包含一条语句。
package migrations

import "embed"

//go:embed mysql/*.sql postgres/*.sql sqlite/*.sql
var FS embed.FS
