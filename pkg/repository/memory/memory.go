package memory

import (
	"github.com/hashicorp/go-memdb"
	"github.com/secmon-lab/taskrelay/pkg/domain/interfaces"
)

// Memory is an in-process repository on go-memdb. Contents are lost on exit.
type Memory struct {
	db   *memdb.MemDB
	task *taskRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	db, err := memdb.NewMemDB(schema())
	if err != nil {
		// schema is static, so this only fails on a programming error
		panic(err)
	}

	return &Memory{
		db:   db,
		task: newTaskRepository(db),
	}
}

func (m *Memory) Task() interfaces.TaskRepository {
	return m.task
}

func (m *Memory) Close() error {
	return nil
}

func schema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tasksTable:    tasksTableSchema(),
			countersTable: countersTableSchema(),
		},
	}
}
