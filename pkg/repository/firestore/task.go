package firestore

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskrelay/pkg/domain/interfaces"
	"github.com/secmon-lab/taskrelay/pkg/domain/model"
	"github.com/secmon-lab/taskrelay/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// taskDoc is the stored form of a task. The action is kept as its canonical
// JSON text so argument values survive the round trip unchanged.
type taskDoc struct {
	ID          int64     `firestore:"id"`
	Description string    `firestore:"description"`
	Action      string    `firestore:"action"`
	Status      string    `firestore:"status"`
	Progress    float64   `firestore:"progress"`
	CreatedAt   time.Time `firestore:"created_at"`
	UpdatedAt   time.Time `firestore:"updated_at"`
}

func toDoc(t *model.Task) (*taskDoc, error) {
	doc := &taskDoc{
		ID:          int64(t.ID),
		Description: t.Description,
		Status:      string(t.Status),
		Progress:    t.Progress,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.Action != nil {
		raw, err := json.Marshal(t.Action)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to encode action", goerr.V("id", t.ID))
		}
		doc.Action = string(raw)
	}
	return doc, nil
}

func (d *taskDoc) toModel() (*model.Task, error) {
	t := &model.Task{
		ID:          model.TaskID(d.ID),
		Description: d.Description,
		Status:      types.TaskStatus(d.Status),
		Progress:    d.Progress,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if d.Action != "" {
		action, err := model.ParseAction([]byte(d.Action))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to decode stored action", goerr.V("id", d.ID))
		}
		t.Action = action
	}
	return t, nil
}

type taskRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newTaskRepository(client *firestore.Client) *taskRepository {
	return &taskRepository{
		client:           client,
		collectionPrefix: "",
	}
}

func (r *taskRepository) tasksCollection() string {
	if r.collectionPrefix != "" {
		return r.collectionPrefix + "_tasks"
	}
	return "tasks"
}

func (r *taskRepository) counterCollection() string {
	if r.collectionPrefix != "" {
		return r.collectionPrefix + "_counters"
	}
	return "counters"
}

func (r *taskRepository) taskCounterDoc() string {
	return "task_counter"
}

func (r *taskRepository) docRef(id model.TaskID) *firestore.DocumentRef {
	return r.client.Collection(r.tasksCollection()).Doc(fmt.Sprintf("%d", id))
}

func (r *taskRepository) getNextID(ctx context.Context) (int64, error) {
	counterRef := r.client.Collection(r.counterCollection()).Doc(r.taskCounterDoc())

	var nextID int64
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(counterRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				nextID = 1
				return tx.Set(counterRef, map[string]interface{}{
					"value": nextID,
				})
			}
			return goerr.Wrap(err, "failed to get counter")
		}

		currentValue, err := doc.DataAt("value")
		if err != nil {
			return goerr.Wrap(err, "failed to get counter value")
		}

		val, ok := currentValue.(int64)
		if !ok {
			return goerr.New("counter value is not of type int64", goerr.V("value", currentValue))
		}
		nextID = val + 1
		return tx.Update(counterRef, []firestore.Update{
			{Path: "value", Value: nextID},
		})
	})

	if err != nil {
		return 0, goerr.Wrap(err, "failed to get next ID")
	}

	return nextID, nil
}

func (r *taskRepository) Create(ctx context.Context, task *model.Task) (*model.Task, error) {
	nextID, err := r.getNextID(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	created := task.Copy()
	created.ID = model.TaskID(nextID)
	created.CreatedAt = now
	created.UpdatedAt = now

	doc, err := toDoc(created)
	if err != nil {
		return nil, err
	}
	if _, err := r.docRef(created.ID).Set(ctx, doc); err != nil {
		return nil, goerr.Wrap(err, "failed to create task", goerr.V("id", created.ID))
	}

	return created, nil
}

func (r *taskRepository) Get(ctx context.Context, id model.TaskID) (*model.Task, error) {
	snap, err := r.docRef(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "task not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get task", goerr.V("id", id))
	}
	return decode(snap)
}

func (r *taskRepository) List(ctx context.Context) ([]*model.Task, error) {
	return r.query(ctx, r.client.Collection(r.tasksCollection()).Query)
}

func (r *taskRepository) ListByStatus(ctx context.Context, st types.TaskStatus) ([]*model.Task, error) {
	return r.query(ctx, r.client.Collection(r.tasksCollection()).Where("status", "==", string(st)))
}

// query sorts in process so no composite index is needed
func (r *taskRepository) query(ctx context.Context, q firestore.Query) ([]*model.Task, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	tasks := []*model.Task{}
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate tasks")
		}

		t, err := decode(snap)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}

	slices.SortFunc(tasks, func(a, b *model.Task) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return tasks, nil
}

func (r *taskRepository) Update(ctx context.Context, id model.TaskID, update *model.TaskUpdate) (*model.Task, error) {
	return r.modify(ctx, id, func(t *model.Task) error {
		update.Apply(t)
		return nil
	})
}

func (r *taskRepository) Transition(ctx context.Context, id model.TaskID, from []types.TaskStatus, to types.TaskStatus, mutate *model.TaskUpdate) (*model.Task, error) {
	return r.modify(ctx, id, func(t *model.Task) error {
		if !slices.Contains(from, t.Status) {
			return goerr.Wrap(interfaces.ErrStatusConflict, "task is not in an expected status",
				goerr.V("id", id),
				goerr.V("status", t.Status),
				goerr.V("expected", from))
		}
		mutate.Apply(t)
		t.Status = to
		return nil
	})
}

// modify runs a read-modify-write of one task inside a transaction
func (r *taskRepository) modify(ctx context.Context, id model.TaskID, fn func(t *model.Task) error) (*model.Task, error) {
	ref := r.docRef(id)

	var updated *model.Task
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(interfaces.ErrNotFound, "task not found", goerr.V("id", id))
			}
			return goerr.Wrap(err, "failed to get task", goerr.V("id", id))
		}

		t, err := decode(snap)
		if err != nil {
			return err
		}
		if err := fn(t); err != nil {
			return err
		}
		t.UpdatedAt = time.Now().UTC()

		doc, err := toDoc(t)
		if err != nil {
			return err
		}
		updated = t
		return tx.Set(ref, doc)
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (r *taskRepository) Delete(ctx context.Context, id model.TaskID) (bool, error) {
	ref := r.docRef(id)

	var existed bool
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		existed = false
		if _, err := tx.Get(ref); err != nil {
			if status.Code(err) == codes.NotFound {
				return nil
			}
			return goerr.Wrap(err, "failed to check task existence", goerr.V("id", id))
		}
		existed = true
		return tx.Delete(ref)
	})
	if err != nil {
		return false, goerr.Wrap(err, "failed to delete task", goerr.V("id", id))
	}

	return existed, nil
}

func decode(snap *firestore.DocumentSnapshot) (*model.Task, error) {
	var doc taskDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode task", goerr.V("doc_id", snap.Ref.ID))
	}
	return doc.toModel()
}
