package engine

import (
	"fmt"

	"github.com/meridianops/voyagesim/internal/dispatcher"
	"github.com/meridianops/voyagesim/pkg/core"
)

// Control command names understood by the dispatcher binding.
const (
	CmdStart    = ":START:"
	CmdDecide   = ":DECIDE:"
	CmdSignal   = ":SIGNAL:"
	CmdAbort    = ":ABORT:"
	CmdStatus   = ":STATUS:"
	CmdSessions = ":SESSIONS:"
)

// BindDispatcher registers the engine's control surface on a dispatcher so
// external transports can drive voyages without importing the engine types.
// Decisions stay synchronous: the caller needs the InvalidTransition error.
func (e *Engine) BindDispatcher(d *dispatcher.Dispatcher) {
	d.Register(CmdStart, func(c dispatcher.Command) (any, error) {
		return nil, e.Start(c.SessionID)
	}, dispatcher.Logged())

	d.Register(CmdDecide, func(c dispatcher.Command) (any, error) {
		if len(c.Args) == 0 {
			return nil, fmt.Errorf("decide: missing decision argument")
		}
		return nil, e.Decide(c.SessionID, core.Decision(c.Args[0]))
	}, dispatcher.Logged())

	d.Register(CmdSignal, func(c dispatcher.Command) (any, error) {
		if len(c.Args) == 0 {
			return nil, fmt.Errorf("signal: missing signal argument")
		}
		return nil, e.Signal(c.SessionID, core.Signal(c.Args[0]))
	}, dispatcher.Logged())

	d.Register(CmdAbort, func(c dispatcher.Command) (any, error) {
		return nil, e.Abort(c.SessionID)
	}, dispatcher.Logged())

	d.Register(CmdStatus, func(c dispatcher.Command) (any, error) {
		v, err := e.Voyage(c.SessionID)
		if err != nil {
			return nil, err
		}
		return v.State(), nil
	})

	d.Register(CmdSessions, func(c dispatcher.Command) (any, error) {
		return e.Sessions(), nil
	})
}
