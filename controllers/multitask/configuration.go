package multitask

import (
	"fmt"
	"math"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"

	"go.viam.com/taskik/motionplan/ik"
	"go.viam.com/taskik/spatialmath"
)

// TaskParams is the number of values describing one task goal: x y z roll pitch yaw.
const TaskParams = 6

// TaskConfiguration is a request to replace the active task list. Links[i] names the link of task i,
// -1 being the end effector; Tasks holds TaskParams values per task.
type TaskConfiguration struct {
	Links []int     `json:"links" mapstructure:"links"`
	Tasks []float64 `json:"tasks" mapstructure:"tasks"`
}

// RequestError is returned when a task configuration is rejected. The active task list is left untouched.
type RequestError struct {
	Reason string
}

func (e *RequestError) Error() string {
	return "task configuration rejected: " + e.Reason
}

// NumTasks returns the number of tasks described by the goal values.
func (tc TaskConfiguration) NumTasks() int {
	return len(tc.Tasks) / TaskParams
}

// Validate checks the request against a chain of numJoints movable joints.
func (tc TaskConfiguration) Validate(numJoints int) error {
	if len(tc.Tasks)%TaskParams != 0 || len(tc.Links) != tc.NumTasks() {
		return &RequestError{Reason: fmt.Sprintf(
			"the number of links (%d) and tasks must be the same, tasks parameters are [x,y,z,roll,pitch,yaw] (got %d values)",
			len(tc.Links), len(tc.Tasks))}
	}
	if len(tc.Links) == 0 {
		return &RequestError{Reason: "at least one task is required"}
	}
	for i, link := range tc.Links {
		if link != int(ik.EndEffector) && (link < 1 || link > numJoints) {
			return &RequestError{Reason: fmt.Sprintf(
				"task %d: links index must be within 1 and %d (%d is end-effector), got %d", i, numJoints, ik.EndEffector, link)}
		}
	}
	for i, v := range tc.Tasks {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &RequestError{Reason: fmt.Sprintf("task %d: value %d is not finite", i/TaskParams, i%TaskParams)}
		}
	}
	return nil
}

// newTasks builds pending tasks from a validated request.
func (tc TaskConfiguration) newTasks() []*ik.Task {
	tasks := make([]*ik.Task, 0, tc.NumTasks())
	for i, link := range tc.Links {
		v := tc.Tasks[i*TaskParams : (i+1)*TaskParams]
		goal := spatialmath.NewPoseFromXYZRPY(v[0], v[1], v[2], v[3], v[4], v[5])
		tasks = append(tasks, ik.NewTask(ik.LinkID(link), goal))
	}
	return tasks
}

// rawTaskConfiguration accepts links as any number so that non integral ids can be rejected instead
// of truncated.
type rawTaskConfiguration struct {
	Links []float64 `mapstructure:"links"`
	Tasks []float64 `mapstructure:"tasks"`
}

// DecodeTaskConfiguration decodes a request of the form {"links": [...], "tasks": [...]}, as found in
// a DoCommand payload.
func DecodeTaskConfiguration(payload interface{}) (TaskConfiguration, error) {
	var raw rawTaskConfiguration
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &raw,
		ErrorUnused: true,
	})
	if err != nil {
		return TaskConfiguration{}, err
	}
	if err := decoder.Decode(payload); err != nil {
		return TaskConfiguration{}, &RequestError{Reason: errors.Wrap(err, "cannot decode task configuration").Error()}
	}
	tc := TaskConfiguration{Links: make([]int, len(raw.Links)), Tasks: raw.Tasks}
	for i, l := range raw.Links {
		if l != math.Trunc(l) {
			return TaskConfiguration{}, &RequestError{Reason: fmt.Sprintf("link %d is not an integer: %v", i, l)}
		}
		tc.Links[i] = int(l)
	}
	return tc, nil
}
