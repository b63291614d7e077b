package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/skillet-ai/skillet/pkg/logger"
	"github.com/skillet-ai/skillet/pkg/sysprompt"
)

// TaskStatus is the lifecycle state of one planned task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task is one unit of a decomposition plan: a description of the work and
// the skills that handle it. Result and Error are filled by execution.
type Task struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	Skills      []string   `json:"skills"`
	Status      TaskStatus `json:"status,omitempty"`
	Result      string     `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Plan is the planning agent's decomposition of a user request.
type Plan struct {
	Tasks     []Task `json:"tasks"`
	Reasoning string `json:"reasoning"`
}

// OrchestratorResult is the outcome of a full orchestration: the synthesized
// answer plus every task with its final status.
type OrchestratorResult struct {
	Answer string
	Tasks  []Task
}

// DefaultMaxConcurrency bounds how many tasks execute at once.
const DefaultMaxConcurrency = 5

// Orchestrator runs multi-skill requests as a plan → execute → synthesize
// pipeline on top of an Executor: a planning thread decomposes the request
// into tasks, each task runs through isolated skill executions under a
// concurrency bound, and a synthesis thread combines the results.
type Orchestrator struct {
	executor       *Executor
	maxConcurrency int
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithMaxConcurrency overrides the task concurrency bound.
func WithMaxConcurrency(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxConcurrency = n
		}
	}
}

// NewOrchestrator creates an orchestrator over an executor. Planning and
// synthesis threads come from the executor's thread factory.
func NewOrchestrator(executor *Executor, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		executor:       executor,
		maxConcurrency: DefaultMaxConcurrency,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Plan asks the planning agent to decompose a user request against the
// registered skill catalog.
func (o *Orchestrator) Plan(ctx context.Context, userRequest string) (*Plan, error) {
	thread, err := o.executor.factory(sysprompt.Planner(o.executor.registry.ListMetadata()))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create planning thread")
	}

	output, err := thread.SendMessage(ctx, userRequest, NewExecutionContext(nil, "", nil, nil, false))
	if err != nil {
		return nil, errors.Wrap(err, "planning failed")
	}
	return ParsePlan(output)
}

// ParsePlan decodes a decomposition plan from planner output, tolerating a
// fenced code block around the JSON. Tasks without an ID get positional ones;
// all tasks start pending.
func ParsePlan(output string) (*Plan, error) {
	trimmed := strings.TrimSpace(output)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		if end := strings.LastIndex(trimmed, "```"); end >= 0 {
			trimmed = trimmed[:end]
		}
		trimmed = strings.TrimSpace(trimmed)
	}

	var plan Plan
	if err := json.Unmarshal([]byte(trimmed), &plan); err != nil {
		return nil, errors.Wrap(err, "failed to parse decomposition plan")
	}
	if len(plan.Tasks) == 0 {
		return nil, errors.New("decomposition plan contains no tasks")
	}
	for i := range plan.Tasks {
		if plan.Tasks[i].ID == "" {
			plan.Tasks[i].ID = strconv.Itoa(i + 1)
		}
		plan.Tasks[i].Status = TaskStatusPending
	}
	return &plan, nil
}

// executeTask runs one task through the executor, one isolated execution per
// listed skill, feeding earlier outputs into later requests. Failures are
// captured on the task and never propagate.
func (o *Orchestrator) executeTask(ctx context.Context, task Task) Task {
	task.Status = TaskStatusInProgress

	if len(task.Skills) == 0 {
		task.Status = TaskStatusFailed
		task.Error = "task names no skills"
		return task
	}

	var outputs []string
	for _, skillName := range task.Skills {
		request := task.Description
		if len(outputs) > 0 {
			request += "\n\nResults from earlier steps:\n\n" + strings.Join(outputs, "\n\n")
		}
		result, err := o.executor.Execute(ctx, skillName, request)
		if err != nil {
			task.Status = TaskStatusFailed
			task.Error = err.Error()
			return task
		}
		outputs = append(outputs, result.Output)
	}

	task.Status = TaskStatusCompleted
	task.Result = strings.Join(outputs, "\n\n")
	return task
}

// Synthesize asks the synthesis agent to combine task results into one
// answer to the original request.
func (o *Orchestrator) Synthesize(ctx context.Context, userRequest string, tasks []Task) (string, error) {
	blocks := make([]string, 0, len(tasks))
	for _, task := range tasks {
		body := task.Result
		if task.Error != "" {
			body = "Failed: " + task.Error
		}
		if body == "" {
			body = "No result."
		}
		blocks = append(blocks, fmt.Sprintf("### Task %s: %s\n\n%s", task.ID, task.Description, body))
	}

	message := fmt.Sprintf("## Original request\n\n%s\n\n## Task results\n\n%s",
		userRequest, strings.Join(blocks, "\n\n"))

	thread, err := o.executor.factory(sysprompt.Synthesizer())
	if err != nil {
		return "", errors.Wrap(err, "failed to create synthesis thread")
	}

	answer, err := thread.SendMessage(ctx, message, NewExecutionContext(nil, "", nil, nil, false))
	if err != nil {
		return "", errors.Wrap(err, "synthesis failed")
	}
	return answer, nil
}

// Orchestrate runs the full pipeline for one user request. Individual task
// failures are recorded on the task and fed to synthesis; only planning or
// synthesis errors fail the orchestration itself.
func (o *Orchestrator) Orchestrate(ctx context.Context, userRequest string) (*OrchestratorResult, error) {
	ctx, span := tracer.Start(ctx, "executor.orchestrate",
		trace.WithAttributes(attribute.Int("max_concurrency", o.maxConcurrency)),
	)
	defer span.End()

	plan, err := o.Plan(ctx, userRequest)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	log := logger.G(ctx).WithField("tasks", len(plan.Tasks))
	log.Debug("executing decomposition plan")

	tasks := append([]Task(nil), plan.Tasks...)
	sem := make(chan struct{}, o.maxConcurrency)
	var wg sync.WaitGroup
	for i := range tasks {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			tasks[i] = o.executeTask(ctx, tasks[i])
		}(i)
	}
	wg.Wait()

	answer, err := o.Synthesize(ctx, userRequest, tasks)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	log.Debug("orchestration complete")
	return &OrchestratorResult{Answer: answer, Tasks: tasks}, nil
}
