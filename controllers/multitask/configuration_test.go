package multitask

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/taskik/motionplan/ik"
	"go.viam.com/taskik/spatialmath"
)

func TestTaskConfigurationValidate(t *testing.T) {
	six := []float64{0.1, 0.2, 0.3, 0, 0, 0}
	for _, tc := range []struct {
		name   string
		cfg    TaskConfiguration
		reason string
	}{
		{"count mismatch", TaskConfiguration{Links: []int{-1, 2}, Tasks: six}, "must be the same"},
		{"partial task", TaskConfiguration{Links: []int{-1}, Tasks: six[:5]}, "[x,y,z,roll,pitch,yaw]"},
		{"empty", TaskConfiguration{}, "at least one task"},
		{"link zero", TaskConfiguration{Links: []int{0}, Tasks: six}, "within 1 and 7"},
		{"link past tip", TaskConfiguration{Links: []int{8}, Tasks: six}, "within 1 and 7"},
		{"negative link", TaskConfiguration{Links: []int{-2}, Tasks: six}, "-1 is end-effector"},
		{"nan", TaskConfiguration{Links: []int{-1}, Tasks: []float64{0, math.NaN(), 0, 0, 0, 0}}, "not finite"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate(7)
			test.That(t, err, test.ShouldNotBeNil)
			var reqErr *RequestError
			test.That(t, errors.As(err, &reqErr), test.ShouldBeTrue)
			test.That(t, reqErr.Error(), test.ShouldContainSubstring, tc.reason)
		})
	}

	ok := TaskConfiguration{Links: []int{1, 7, -1}, Tasks: append(append(append([]float64{}, six...), six...), six...)}
	test.That(t, ok.Validate(7), test.ShouldBeNil)
	test.That(t, ok.NumTasks(), test.ShouldEqual, 3)
}

func TestNewTasks(t *testing.T) {
	cfg := TaskConfiguration{
		Links: []int{3, -1},
		Tasks: []float64{
			0.1, 0.2, 0.3, 0, 0, math.Pi / 2,
			-0.4, 0, 0.9, 0.1, -0.2, 0.3,
		},
	}
	tasks := cfg.newTasks()
	test.That(t, tasks, test.ShouldHaveLength, 2)
	test.That(t, tasks[0].Link, test.ShouldEqual, ik.LinkID(3))
	test.That(t, tasks[1].Link, test.ShouldEqual, ik.EndEffector)
	test.That(t, tasks[0].OnTarget(), test.ShouldBeFalse)

	// yaw rotates x onto y
	expected := spatialmath.NewPose(tasks[0].Goal.Point(), &spatialmath.R4AA{Theta: math.Pi / 2, RZ: 1})
	test.That(t, spatialmath.PoseAlmostEqual(tasks[0].Goal, expected), test.ShouldBeTrue)
	ea := tasks[1].Goal.Orientation().EulerAngles()
	test.That(t, ea.Roll, test.ShouldAlmostEqual, 0.1)
	test.That(t, ea.Pitch, test.ShouldAlmostEqual, -0.2)
	test.That(t, ea.Yaw, test.ShouldAlmostEqual, 0.3)
}

func TestDecodeTaskConfiguration(t *testing.T) {
	tc, err := DecodeTaskConfiguration(map[string]interface{}{
		"links": []interface{}{-1.0, 4},
		"tasks": []interface{}{0.1, 0, 0.5, 0, 0, 0, 0, 0, 0.3, 0, 0, 0},
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tc.Links, test.ShouldResemble, []int{-1, 4})
	test.That(t, tc.Tasks, test.ShouldHaveLength, 12)
	test.That(t, tc.Tasks[2], test.ShouldEqual, 0.5)

	_, err = DecodeTaskConfiguration(map[string]interface{}{"links": []interface{}{1.5}, "tasks": []interface{}{}})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "not an integer")

	_, err = DecodeTaskConfiguration(map[string]interface{}{"links": []interface{}{-1}, "goals": []interface{}{}})
	test.That(t, err, test.ShouldNotBeNil)
	var reqErr *RequestError
	test.That(t, errors.As(err, &reqErr), test.ShouldBeTrue)

	_, err = DecodeTaskConfiguration("links")
	test.That(t, err, test.ShouldNotBeNil)
}
