/*
 * @module service/repository/repository
 * @description 通用仓储，执行编译语句并按列映射把行还原为领域对象，管理连接获取与丢弃
 * @architecture 分层架构 - 仓储层，元数据值加通用仓储的组合替代实体继承链
 * @documentReference dev_docs/repository.md
 * @stateFlow 获取连接 -> 执行单条语句或批量绑定循环 -> 行映射 -> defer中归还或丢弃连接
 * @rules 方法不抛错误，统一返回Result；执行出错连接标记丢弃；save回填主键和id别名
 * @dependencies database/sql, github.com/spf13/cast
 * @refs binds.go, row_converter.go, service/database, service/metadata
 */

package repository

import (
	"context"
	"fmt"
	"log/slog"

	"esb-bridge-service/service/database"
	"esb-bridge-service/service/metadata"

	"github.com/spf13/cast"
)

// Repository 通用仓储，按别名从连接管理器取连接执行编译语句
type Repository struct {
	manager   *database.ConnectionManager
	alias     string
	builder   *metadata.StatementBuilder
	converter *RowConverter
}

// NewRepository 创建仓储
func NewRepository(manager *database.ConnectionManager, alias string, mapper *metadata.ColumnMapper, converter *RowConverter) *Repository {
	if converter == nil {
		converter = NewRowConverter(false)
	}
	return &Repository{
		manager:   manager,
		alias:     alias,
		builder:   metadata.NewStatementBuilder(mapper),
		converter: converter,
	}
}

// Builder 返回底层语句构建器，供调用方预构建语句
func (r *Repository) Builder() *metadata.StatementBuilder {
	return r.builder
}

// WithMapper 派生一个共享连接管理器与编码还原器、但按另一套列映射工作的仓储
// 关联实体（如头行结构的行视图）复用同一连接池时使用
func (r *Repository) WithMapper(mapper *metadata.ColumnMapper) *Repository {
	return &Repository{
		manager:   r.manager,
		alias:     r.alias,
		builder:   metadata.NewStatementBuilder(mapper),
		converter: r.converter,
	}
}

// mapRow 把一行原始列值还原为领域对象
// 每列经过编码还原和toDomain转换；id字段始终填充，优先取主键，视图无主键时取行标识
func (r *Repository) mapRow(columns []string, values []interface{}) map[string]interface{} {
	mapper := r.builder.Mapper()
	meta := mapper.Metadata()
	row := make(map[string]interface{}, len(columns)+1)

	for i, column := range columns {
		value := r.converter.Convert(values[i])
		row[column] = mapper.DomainValue(column, value)
	}

	if meta.PrimaryKey != nil {
		row["id"] = row[meta.PrimaryKey.DomainName]
	} else if rowID, ok := row["rowIdentifier"]; ok {
		row["id"] = rowID
	}

	return row
}

// queryRows 执行查询并映射全部行
func (r *Repository) queryRows(ctx context.Context, conn *database.Connection, stmt *metadata.CompiledStatement) ([]map[string]interface{}, error) {
	translated, err := translateStatement(stmt.SQL, stmt.Binds)
	if err != nil {
		return nil, err
	}

	rows, err := conn.Conn.QueryContext(ctx, translated.SQL, translated.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var result []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}
		result = append(result, r.mapRow(columns, values))
	}
	return result, rows.Err()
}

// withConnection 统一的连接生命周期包装
// 执行函数返回错误时连接标记丢弃，不回池
func (r *Repository) withConnection(ctx context.Context, operation string, fn func(conn *database.Connection) (interface{}, error)) Result {
	conn, err := r.manager.Acquire(ctx, r.alias)
	if err != nil {
		slog.Error("仓储获取连接失败", "operation", operation, "alias", r.alias, "error", err)
		return Fail(ErrCodeAcquire, err)
	}

	drop := false
	defer func() {
		r.manager.Release(conn, drop)
	}()

	data, err := fn(conn)
	if err != nil {
		drop = true
		slog.Error("仓储执行失败", "operation", operation, "alias", r.alias, "error", err)
		return Fail(ErrCodeExecute, err)
	}
	return Ok(data)
}

// FindByID 按主键查询单行
func (r *Repository) FindByID(ctx context.Context, id interface{}) Result {
	meta := r.builder.Mapper().Metadata()
	if meta.PrimaryKey == nil {
		return Fail(ErrCodeBuild, fmt.Errorf("实体未声明主键，无法按主键查询"))
	}
	return r.FindOneBy(ctx, metadata.Plain{meta.PrimaryKey.DomainName: id})
}

// FindOneBy 按条件查询单行，无匹配时data为nil
func (r *Repository) FindOneBy(ctx context.Context, criteria metadata.Criteria) Result {
	stmt, err := r.builder.BuildSelect(metadata.SelectOptions{Criteria: criteria, Limit: 1})
	if err != nil {
		return Fail(ErrCodeBuild, err)
	}

	return r.withConnection(ctx, "findOneBy", func(conn *database.Connection) (interface{}, error) {
		rows, err := r.queryRows(ctx, conn, stmt)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, nil
		}
		return rows[0], nil
	})
}

// Find 按条件查询多行
func (r *Repository) Find(ctx context.Context, opts metadata.SelectOptions) Result {
	stmt, err := r.builder.BuildSelect(opts)
	if err != nil {
		return Fail(ErrCodeBuild, err)
	}

	return r.withConnection(ctx, "find", func(conn *database.Connection) (interface{}, error) {
		return r.queryRows(ctx, conn, stmt)
	})
}

// FindWithPagination 分页查询，返回PageData{rows, total, page, size}
func (r *Repository) FindWithPagination(ctx context.Context, opts metadata.SelectOptions, page, size int) Result {
	stmt, err := r.builder.BuildPaginatedSelect(opts, page, size)
	if err != nil {
		return Fail(ErrCodeBuild, err)
	}

	return r.withConnection(ctx, "findWithPagination", func(conn *database.Connection) (interface{}, error) {
		rows, err := r.queryRows(ctx, conn, stmt)
		if err != nil {
			return nil, err
		}

		data := &PageData{Rows: make([]map[string]interface{}, 0, len(rows)), Page: page, Size: size}
		for _, row := range rows {
			if data.Total == 0 {
				data.Total = cast.ToInt64(row["total"])
			}
			delete(row, "total")
			delete(row, "rownumid")
			data.Rows = append(data.Rows, row)
		}
		return data, nil
	})
}

// executeInsert 执行单条插入并取回回填主键
func (r *Repository) executeInsert(ctx context.Context, conn *database.Connection, sqlText string, binds metadata.BindMap) (interface{}, error) {
	translated, err := translateStatement(sqlText, binds)
	if err != nil {
		return nil, err
	}

	if translated.ReturningID {
		var id interface{}
		if err := conn.Conn.QueryRowContext(ctx, translated.SQL, translated.Args...).Scan(&id); err != nil {
			return nil, err
		}
		return r.converter.Convert(id), nil
	}

	if _, err := conn.Conn.ExecContext(ctx, translated.SQL, translated.Args...); err != nil {
		return nil, err
	}
	return nil, nil
}

// Save 插入单个实体，成功后把回填主键写入实体的主键字段和id别名
func (r *Repository) Save(ctx context.Context, entity map[string]interface{}) Result {
	stmt, err := r.builder.BuildInsert(entity)
	if err != nil {
		return Fail(ErrCodeBuild, err)
	}

	meta := r.builder.Mapper().Metadata()
	return r.withConnection(ctx, "save", func(conn *database.Connection) (interface{}, error) {
		id, err := r.executeInsert(ctx, conn, stmt.SQL, stmt.Binds)
		if err != nil {
			return nil, err
		}
		if id != nil {
			if meta.PrimaryKey != nil {
				entity[meta.PrimaryKey.DomainName] = id
			}
			entity["id"] = id
		}
		return entity, nil
	})
}

// SaveMany 批量插入，同一连接上按绑定组循环执行，逐实体回填主键
func (r *Repository) SaveMany(ctx context.Context, entities []map[string]interface{}) Result {
	stmt, err := r.builder.BuildBatchInsert(entities)
	if err != nil {
		return Fail(ErrCodeBuild, err)
	}

	meta := r.builder.Mapper().Metadata()
	return r.withConnection(ctx, "saveMany", func(conn *database.Connection) (interface{}, error) {
		for i, binds := range stmt.BatchBinds {
			id, err := r.executeInsert(ctx, conn, stmt.SQL, binds)
			if err != nil {
				return nil, fmt.Errorf("批量插入第%d个实体失败: %w", i, err)
			}
			if id != nil {
				if meta.PrimaryKey != nil {
					entities[i][meta.PrimaryKey.DomainName] = id
				}
				entities[i]["id"] = id
			}
		}
		return entities, nil
	})
}

// Update 条件更新，data为受影响行数
func (r *Repository) Update(ctx context.Context, set map[string]interface{}, criteria metadata.Criteria) Result {
	stmt, err := r.builder.BuildUpdate(set, criteria)
	if err != nil {
		return Fail(ErrCodeBuild, err)
	}

	return r.withConnection(ctx, "update", func(conn *database.Connection) (interface{}, error) {
		translated, err := translateStatement(stmt.SQL, stmt.Binds)
		if err != nil {
			return nil, err
		}
		result, err := conn.Conn.ExecContext(ctx, translated.SQL, translated.Args...)
		if err != nil {
			return nil, err
		}
		affected, _ := result.RowsAffected()
		return affected, nil
	})
}

// UpdateMany 按键列表批量更新，data为累计受影响行数
func (r *Repository) UpdateMany(ctx context.Context, entities []map[string]interface{}, by []string) Result {
	stmt, err := r.builder.BuildBatchUpdate(entities, by)
	if err != nil {
		return Fail(ErrCodeBuild, err)
	}

	return r.withConnection(ctx, "updateMany", func(conn *database.Connection) (interface{}, error) {
		var total int64
		for i, binds := range stmt.BatchBinds {
			translated, err := translateStatement(stmt.SQL, binds)
			if err != nil {
				return nil, err
			}
			result, err := conn.Conn.ExecContext(ctx, translated.SQL, translated.Args...)
			if err != nil {
				return nil, fmt.Errorf("批量更新第%d个实体失败: %w", i, err)
			}
			affected, _ := result.RowsAffected()
			total += affected
		}
		return total, nil
	})
}

// Delete 条件删除
func (r *Repository) Delete(ctx context.Context, criteria metadata.Criteria) Result {
	stmt, err := r.builder.BuildDelete(criteria)
	if err != nil {
		return Fail(ErrCodeBuild, err)
	}

	return r.withConnection(ctx, "delete", func(conn *database.Connection) (interface{}, error) {
		translated, err := translateStatement(stmt.SQL, stmt.Binds)
		if err != nil {
			return nil, err
		}
		result, err := conn.Conn.ExecContext(ctx, translated.SQL, translated.Args...)
		if err != nil {
			return nil, err
		}
		affected, _ := result.RowsAffected()
		return affected, nil
	})
}

// DeleteByID 按主键删除
func (r *Repository) DeleteByID(ctx context.Context, id interface{}) Result {
	meta := r.builder.Mapper().Metadata()
	if meta.PrimaryKey == nil {
		return Fail(ErrCodeBuild, fmt.Errorf("实体未声明主键，无法按主键删除"))
	}
	return r.Delete(ctx, metadata.Plain{meta.PrimaryKey.DomainName: id})
}

// Query 裸SQL查询，绑定变量仍按命名占位符翻译
func (r *Repository) Query(ctx context.Context, sqlText string, binds metadata.BindMap) Result {
	if binds == nil {
		binds = metadata.BindMap{}
	}
	stmt := &metadata.CompiledStatement{SQL: sqlText, Binds: binds}

	return r.withConnection(ctx, "query", func(conn *database.Connection) (interface{}, error) {
		return r.queryRows(ctx, conn, stmt)
	})
}

// Exec 裸SQL执行，用于调用存储过程等不返回行的语句
func (r *Repository) Exec(ctx context.Context, sqlText string, binds metadata.BindMap) Result {
	if binds == nil {
		binds = metadata.BindMap{}
	}

	return r.withConnection(ctx, "exec", func(conn *database.Connection) (interface{}, error) {
		translated, err := translateStatement(sqlText, binds)
		if err != nil {
			return nil, err
		}
		result, err := conn.Conn.ExecContext(ctx, translated.SQL, translated.Args...)
		if err != nil {
			return nil, err
		}
		affected, _ := result.RowsAffected()
		return affected, nil
	})
}
