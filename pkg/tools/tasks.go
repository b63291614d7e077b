package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/skillet-ai/skillet/pkg/skills"
	tooltypes "github.com/skillet-ai/skillet/pkg/types/tools"
)

const (
	CreateTaskToolName = "create_task"
	UpdateTaskToolName = "update_task"
	ListTasksToolName  = "list_tasks"
)

// taskStatuses are the values update_task accepts.
var taskStatuses = map[string]bool{
	"pending":     true,
	"in_progress": true,
	"completed":   true,
	"failed":      true,
}

type trackedTask struct {
	ID          string
	Subject     string
	Description string
	Status      string
	DependsOn   []string
}

// TaskList is an in-memory task tracker an agent drives through the
// create_task/update_task/list_tasks tools, for breaking a large request
// into trackable pieces. It implements skills.Toolset so it can be attached
// to a skill.
type TaskList struct {
	mu      sync.Mutex
	tasks   map[string]*trackedTask
	order   []string
	counter int
}

var _ skills.Toolset = &TaskList{}

// NewTaskList creates an empty task list.
func NewTaskList() *TaskList {
	return &TaskList{tasks: make(map[string]*trackedTask)}
}

// Reset clears the tasks for a new run. The ID counter keeps incrementing so
// task IDs stay unique across runs.
func (l *TaskList) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tasks = make(map[string]*trackedTask)
	l.order = nil
}

// Tools returns the three task tools bound to this list.
func (l *TaskList) Tools(ctx context.Context) ([]tooltypes.Tool, error) {
	return []tooltypes.Tool{
		&createTaskTool{list: l},
		&updateTaskTool{list: l},
		&listTasksTool{list: l},
	}, nil
}

func (l *TaskList) create(subject, description string, dependsOn []string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, dep := range dependsOn {
		if _, ok := l.tasks[dep]; !ok {
			return "", errors.Errorf("dependency %q does not exist", dep)
		}
	}
	l.counter++
	id := strconv.Itoa(l.counter)
	l.tasks[id] = &trackedTask{
		ID:          id,
		Subject:     subject,
		Description: description,
		Status:      "pending",
		DependsOn:   dependsOn,
	}
	l.order = append(l.order, id)
	return id, nil
}

func (l *TaskList) update(id, status string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	task, ok := l.tasks[id]
	if !ok {
		return errors.Errorf("task %q does not exist", id)
	}
	task.Status = status
	return nil
}

func (l *TaskList) render() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.order) == 0 {
		return "No tasks."
	}
	var lines []string
	for _, id := range l.order {
		task := l.tasks[id]
		lines = append(lines, fmt.Sprintf("[%s] %s (%s)", task.ID, task.Subject, task.Status))
		if len(task.DependsOn) > 0 {
			lines = append(lines, "  depends on: "+strings.Join(task.DependsOn, ", "))
		}
	}
	return strings.Join(lines, "\n")
}

// CreateTaskInput is the parameter shape of the create_task tool.
type CreateTaskInput struct {
	Subject     string   `json:"subject" jsonschema:"required,description=Short task subject"`
	Description string   `json:"description,omitempty" jsonschema:"description=Longer task description"`
	DependsOn   []string `json:"depends_on,omitempty" jsonschema:"description=IDs of tasks this one depends on"`
}

type createTaskTool struct {
	list *TaskList
}

func (t *createTaskTool) Name() string {
	return CreateTaskToolName
}

func (t *createTaskTool) Description() string {
	return "Create a tracked task. Returns the new task's ID. Dependencies must reference existing task IDs."
}

func (t *createTaskTool) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[CreateTaskInput]()
}

func (t *createTaskTool) ValidateInput(state tooltypes.State, parameters string) error {
	var input CreateTaskInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return errors.Wrap(err, "invalid tool parameters")
	}
	if input.Subject == "" {
		return errors.New("subject is required")
	}
	return nil
}

func (t *createTaskTool) Execute(ctx context.Context, state tooltypes.State, parameters string) tooltypes.ToolResult {
	var input CreateTaskInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return tooltypes.BaseToolResult{Error: errors.Wrap(err, "invalid tool parameters").Error()}
	}
	id, err := t.list.create(input.Subject, input.Description, input.DependsOn)
	if err != nil {
		return tooltypes.BaseToolResult{Error: err.Error()}
	}
	return tooltypes.BaseToolResult{Result: fmt.Sprintf("Task %s created: %s", id, input.Subject)}
}

func (t *createTaskTool) TracingKVs(parameters string) ([]attribute.KeyValue, error) {
	var input CreateTaskInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return nil, err
	}
	return []attribute.KeyValue{
		attribute.String("tool", CreateTaskToolName),
		attribute.String("subject", input.Subject),
	}, nil
}

// UpdateTaskInput is the parameter shape of the update_task tool.
type UpdateTaskInput struct {
	TaskID string `json:"task_id" jsonschema:"required,description=ID of the task to update"`
	Status string `json:"status" jsonschema:"required,enum=pending,enum=in_progress,enum=completed,enum=failed"`
}

type updateTaskTool struct {
	list *TaskList
}

func (t *updateTaskTool) Name() string {
	return UpdateTaskToolName
}

func (t *updateTaskTool) Description() string {
	return "Update a tracked task's status. Valid statuses: pending, in_progress, completed, failed."
}

func (t *updateTaskTool) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[UpdateTaskInput]()
}

func (t *updateTaskTool) ValidateInput(state tooltypes.State, parameters string) error {
	var input UpdateTaskInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return errors.Wrap(err, "invalid tool parameters")
	}
	if input.TaskID == "" {
		return errors.New("task_id is required")
	}
	if !taskStatuses[input.Status] {
		return errors.Errorf("invalid status %q", input.Status)
	}
	return nil
}

func (t *updateTaskTool) Execute(ctx context.Context, state tooltypes.State, parameters string) tooltypes.ToolResult {
	var input UpdateTaskInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return tooltypes.BaseToolResult{Error: errors.Wrap(err, "invalid tool parameters").Error()}
	}
	if !taskStatuses[input.Status] {
		return tooltypes.BaseToolResult{Error: fmt.Sprintf("invalid status %q", input.Status)}
	}
	if err := t.list.update(input.TaskID, input.Status); err != nil {
		return tooltypes.BaseToolResult{Error: err.Error()}
	}
	return tooltypes.BaseToolResult{Result: fmt.Sprintf("Task %s updated to %s", input.TaskID, input.Status)}
}

func (t *updateTaskTool) TracingKVs(parameters string) ([]attribute.KeyValue, error) {
	var input UpdateTaskInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return nil, err
	}
	return []attribute.KeyValue{
		attribute.String("tool", UpdateTaskToolName),
		attribute.String("task_id", input.TaskID),
		attribute.String("status", input.Status),
	}, nil
}

// ListTasksInput is the parameter shape of the list_tasks tool.
type ListTasksInput struct{}

type listTasksTool struct {
	list *TaskList
}

func (t *listTasksTool) Name() string {
	return ListTasksToolName
}

func (t *listTasksTool) Description() string {
	return "List all tracked tasks with their IDs, subjects, statuses, and dependencies."
}

func (t *listTasksTool) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[ListTasksInput]()
}

func (t *listTasksTool) ValidateInput(state tooltypes.State, parameters string) error {
	return nil
}

func (t *listTasksTool) Execute(ctx context.Context, state tooltypes.State, parameters string) tooltypes.ToolResult {
	return tooltypes.BaseToolResult{Result: t.list.render()}
}

func (t *listTasksTool) TracingKVs(parameters string) ([]attribute.KeyValue, error) {
	return []attribute.KeyValue{attribute.String("tool", ListTasksToolName)}, nil
}
