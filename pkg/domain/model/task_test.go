package model_test

import (
	"math"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/taskrelay/pkg/domain/model"
	"github.com/secmon-lab/taskrelay/pkg/domain/types"
)

func TestValidateProgress(t *testing.T) {
	tests := []struct {
		p    float64
		want bool
	}{
		{0.0, true},
		{0.5, true},
		{1.0, true},
		{1.0000001, false},
		{-0.0001, false},
		{math.NaN(), false},
		{math.Inf(1), false},
	}

	for _, tt := range tests {
		err := model.ValidateProgress(tt.p)
		if tt.want {
			gt.NoError(t, err)
		} else {
			gt.Error(t, err).Is(model.ErrInvalidProgress)
		}
	}
}

func TestParseTaskID(t *testing.T) {
	id, err := model.ParseTaskID("42")
	gt.NoError(t, err)
	gt.Value(t, id).Equal(model.TaskID(42))
	gt.Value(t, id.String()).Equal("42")

	for _, s := range []string{"", "0", "-3", "abc", "1.5"} {
		_, err := model.ParseTaskID(s)
		gt.Error(t, err).Is(model.ErrInvalidTaskID)
	}
}

func TestTaskUpdate(t *testing.T) {
	t.Run("empty update", func(t *testing.T) {
		gt.Bool(t, (&model.TaskUpdate{}).IsEmpty()).True()
		var nilUpdate *model.TaskUpdate
		gt.Bool(t, nilUpdate.IsEmpty()).True()
	})

	t.Run("validate rejects bad values", func(t *testing.T) {
		bad := 1.5
		gt.Error(t, (&model.TaskUpdate{Progress: &bad}).Validate()).Is(model.ErrInvalidProgress)

		status := types.TaskStatus("DONE")
		gt.Error(t, (&model.TaskUpdate{Status: &status}).Validate()).Is(model.ErrInvalidStatus)

		a := model.MustNewAction("x", "y", nil, "Z")
		gt.Error(t, (&model.TaskUpdate{Action: a, ClearAction: true}).Validate())
	})

	t.Run("apply sets only provided fields", func(t *testing.T) {
		task := &model.Task{
			ID:          1,
			Description: "before",
			Action:      model.MustNewAction("x", "y", nil, "Z"),
			Status:      types.TaskStatusNew,
			Progress:    0.1,
		}
		desc := "after"
		progress := 0.7
		update := &model.TaskUpdate{Description: &desc, Progress: &progress}
		gt.Bool(t, update.IsEmpty()).False()
		update.Apply(task)

		gt.Value(t, task.Description).Equal("after")
		gt.Value(t, task.Progress).Equal(0.7)
		gt.Value(t, task.Status).Equal(types.TaskStatusNew)
		gt.Value(t, task.Action).NotNil()

		(&model.TaskUpdate{ClearAction: true}).Apply(task)
		gt.Value(t, task.Action).Nil()
	})
}
