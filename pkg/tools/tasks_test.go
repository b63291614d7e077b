package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func taskTools(t *testing.T) (*TaskList, map[string]func(params string) string) {
	t.Helper()
	list := NewTaskList()
	bound, err := list.Tools(context.Background())
	require.NoError(t, err)
	require.Len(t, bound, 3)

	run := make(map[string]func(params string) string, len(bound))
	for _, tool := range bound {
		tool := tool
		run[tool.Name()] = func(params string) string {
			result := tool.Execute(context.Background(), nil, params)
			if result.IsError() {
				return "error: " + result.GetError()
			}
			return result.GetResult()
		}
	}
	return list, run
}

func TestTaskListCreateAndList(t *testing.T) {
	_, run := taskTools(t)

	assert.Equal(t, "No tasks.", run[ListTasksToolName](`{}`))

	assert.Equal(t, "Task 1 created: Gather data", run[CreateTaskToolName](`{"subject": "Gather data"}`))
	assert.Equal(t, "Task 2 created: Write summary", run[CreateTaskToolName](`{"subject": "Write summary", "depends_on": ["1"]}`))

	listing := run[ListTasksToolName](`{}`)
	assert.Contains(t, listing, "[1] Gather data (pending)")
	assert.Contains(t, listing, "[2] Write summary (pending)")
	assert.Contains(t, listing, "depends on: 1")
}

func TestTaskListMissingDependency(t *testing.T) {
	_, run := taskTools(t)

	out := run[CreateTaskToolName](`{"subject": "Orphan", "depends_on": ["7"]}`)
	assert.Contains(t, out, `dependency "7" does not exist`)
	assert.Equal(t, "No tasks.", run[ListTasksToolName](`{}`))
}

func TestTaskListUpdateStatus(t *testing.T) {
	_, run := taskTools(t)

	run[CreateTaskToolName](`{"subject": "Gather data"}`)
	assert.Equal(t, "Task 1 updated to completed", run[UpdateTaskToolName](`{"task_id": "1", "status": "completed"}`))
	assert.Contains(t, run[ListTasksToolName](`{}`), "[1] Gather data (completed)")

	assert.Contains(t, run[UpdateTaskToolName](`{"task_id": "1", "status": "done"}`), "invalid status")
	assert.Contains(t, run[UpdateTaskToolName](`{"task_id": "9", "status": "failed"}`), `task "9" does not exist`)
}

func TestTaskListValidateInput(t *testing.T) {
	list := NewTaskList()
	bound, err := list.Tools(context.Background())
	require.NoError(t, err)

	byName := map[string]int{}
	for i, tool := range bound {
		byName[tool.Name()] = i
	}

	require.Error(t, bound[byName[CreateTaskToolName]].ValidateInput(nil, `{}`))
	require.NoError(t, bound[byName[CreateTaskToolName]].ValidateInput(nil, `{"subject": "x"}`))
	require.Error(t, bound[byName[UpdateTaskToolName]].ValidateInput(nil, `{"task_id": "1", "status": "done"}`))
	require.NoError(t, bound[byName[UpdateTaskToolName]].ValidateInput(nil, `{"task_id": "1", "status": "failed"}`))
}

func TestTaskListResetKeepsCounter(t *testing.T) {
	list, run := taskTools(t)

	run[CreateTaskToolName](`{"subject": "First"}`)
	list.Reset()

	assert.Equal(t, "No tasks.", run[ListTasksToolName](`{}`))
	assert.Equal(t, "Task 2 created: Second", run[CreateTaskToolName](`{"subject": "Second"}`))
}
