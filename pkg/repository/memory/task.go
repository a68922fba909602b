package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/hashicorp/go-memdb"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskrelay/pkg/domain/interfaces"
	"github.com/secmon-lab/taskrelay/pkg/domain/model"
	"github.com/secmon-lab/taskrelay/pkg/domain/types"
)

const (
	tasksTable    = "tasks"
	countersTable = "counters"
	taskCounter   = "task"
)

// counter holds the last issued ID of a sequence
type counter struct {
	Name  string
	Value int64
}

func tasksTableSchema() *memdb.TableSchema {
	return &memdb.TableSchema{
		Name: tasksTable,
		Indexes: map[string]*memdb.IndexSchema{
			"id": {
				Name:    "id",
				Unique:  true,
				Indexer: &memdb.IntFieldIndex{Field: "ID"},
			},
			"status": {
				Name:    "status",
				Indexer: &memdb.StringFieldIndex{Field: "Status"},
			},
		},
	}
}

func countersTableSchema() *memdb.TableSchema {
	return &memdb.TableSchema{
		Name: countersTable,
		Indexes: map[string]*memdb.IndexSchema{
			"id": {
				Name:    "id",
				Unique:  true,
				Indexer: &memdb.StringFieldIndex{Field: "Name"},
			},
		},
	}
}

// taskRepository stores copies of tasks; objects inside memdb are never
// modified in place.
type taskRepository struct {
	db *memdb.MemDB
}

func newTaskRepository(db *memdb.MemDB) *taskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) Create(ctx context.Context, task *model.Task) (*model.Task, error) {
	tx := r.db.Txn(true)
	defer tx.Abort()

	id, err := nextID(tx, taskCounter)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	created := task.Copy()
	created.ID = model.TaskID(id)
	created.CreatedAt = now
	created.UpdatedAt = now

	if err := tx.Insert(tasksTable, created); err != nil {
		return nil, goerr.Wrap(err, "failed to insert task", goerr.V("id", id))
	}
	tx.Commit()

	return created.Copy(), nil
}

func (r *taskRepository) Get(ctx context.Context, id model.TaskID) (*model.Task, error) {
	tx := r.db.Txn(false)
	defer tx.Abort()

	t, err := getTask(tx, id)
	if err != nil {
		return nil, err
	}
	return t.Copy(), nil
}

func (r *taskRepository) List(ctx context.Context) ([]*model.Task, error) {
	tx := r.db.Txn(false)
	defer tx.Abort()

	it, err := tx.Get(tasksTable, "id")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list tasks")
	}
	return collect(it), nil
}

func (r *taskRepository) ListByStatus(ctx context.Context, status types.TaskStatus) ([]*model.Task, error) {
	tx := r.db.Txn(false)
	defer tx.Abort()

	it, err := tx.Get(tasksTable, "status", string(status))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list tasks", goerr.V("status", status))
	}
	return collect(it), nil
}

func (r *taskRepository) Update(ctx context.Context, id model.TaskID, update *model.TaskUpdate) (*model.Task, error) {
	tx := r.db.Txn(true)
	defer tx.Abort()

	current, err := getTask(tx, id)
	if err != nil {
		return nil, err
	}

	updated := current.Copy()
	update.Apply(updated)
	updated.UpdatedAt = time.Now().UTC()

	if err := tx.Insert(tasksTable, updated); err != nil {
		return nil, goerr.Wrap(err, "failed to update task", goerr.V("id", id))
	}
	tx.Commit()

	return updated.Copy(), nil
}

func (r *taskRepository) Transition(ctx context.Context, id model.TaskID, from []types.TaskStatus, to types.TaskStatus, mutate *model.TaskUpdate) (*model.Task, error) {
	tx := r.db.Txn(true)
	defer tx.Abort()

	current, err := getTask(tx, id)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(from, current.Status) {
		return nil, goerr.Wrap(interfaces.ErrStatusConflict, "task is not in an expected status",
			goerr.V("id", id),
			goerr.V("status", current.Status),
			goerr.V("expected", from))
	}

	updated := current.Copy()
	mutate.Apply(updated)
	updated.Status = to
	updated.UpdatedAt = time.Now().UTC()

	if err := tx.Insert(tasksTable, updated); err != nil {
		return nil, goerr.Wrap(err, "failed to transition task", goerr.V("id", id))
	}
	tx.Commit()

	return updated.Copy(), nil
}

func (r *taskRepository) Delete(ctx context.Context, id model.TaskID) (bool, error) {
	tx := r.db.Txn(true)
	defer tx.Abort()

	n, err := tx.DeleteAll(tasksTable, "id", int64(id))
	if err != nil {
		return false, goerr.Wrap(err, "failed to delete task", goerr.V("id", id))
	}
	tx.Commit()

	return n > 0, nil
}

func getTask(tx *memdb.Txn, id model.TaskID) (*model.Task, error) {
	raw, err := tx.First(tasksTable, "id", int64(id))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get task", goerr.V("id", id))
	}
	if raw == nil {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "task not found", goerr.V("id", id))
	}
	return raw.(*model.Task), nil
}

func nextID(tx *memdb.Txn, name string) (int64, error) {
	raw, err := tx.First(countersTable, "id", name)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to read counter", goerr.V("counter", name))
	}

	next := int64(1)
	if c, ok := raw.(*counter); ok {
		next = c.Value + 1
	}
	if err := tx.Insert(countersTable, &counter{Name: name, Value: next}); err != nil {
		return 0, goerr.Wrap(err, "failed to update counter", goerr.V("counter", name))
	}
	return next, nil
}

// collect drains it newest first. IDs grow with creation time, so ID order
// breaks ties between tasks created within the same clock tick.
func collect(it memdb.ResultIterator) []*model.Task {
	tasks := []*model.Task{}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		tasks = append(tasks, obj.(*model.Task).Copy())
	}
	slices.SortFunc(tasks, func(a, b *model.Task) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return tasks
}
