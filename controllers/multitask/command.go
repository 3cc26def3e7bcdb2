package multitask

import (
	"context"

	"github.com/pkg/errors"
)

// DoCommand keys.
const (
	CommandConfiguration = "command_configuration"
	CommandStatus        = "status"
)

// DoCommand handles free form requests:
//
//	{"command_configuration": {"links": [...], "tasks": [...]}}
//	{"status": true}
func (c *Controller) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	if payload, ok := cmd[CommandConfiguration]; ok {
		tc, err := DecodeTaskConfiguration(payload)
		if err != nil {
			c.logger.Warnw("rejecting task configuration", "error", err)
			return nil, errors.Wrap(err, CommandConfiguration)
		}
		if err := c.Configure(ctx, tc); err != nil {
			return nil, err
		}
		return map[string]interface{}{"accepted": true, "tasks": tc.NumTasks()}, nil
	}
	if _, ok := cmd[CommandStatus]; ok {
		st := c.Status()
		return map[string]interface{}{
			"active":    st.Active,
			"links":     st.Links,
			"on_target": st.OnTarget,
		}, nil
	}
	return nil, errors.Errorf("unknown command, expected %q or %q", CommandConfiguration, CommandStatus)
}
