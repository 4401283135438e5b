package loggerfx

import (
	"strings"

	"github.com/sirupsen/logrus"
	"go.uber.org/fx/fxevent"
)

// FxEventLogger writes fx lifecycle events through logrus. Successful events
// go to debug so a normal run only shows failures.
type FxEventLogger struct {
	Logger logrus.FieldLogger
}

func NewFxEventLogger(logger *logrus.Logger) fxevent.Logger {
	return &FxEventLogger{Logger: logger}
}

func (l *FxEventLogger) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.OnStartExecuting:
		l.Logger.WithFields(logrus.Fields{"callee": e.FunctionName, "caller": e.CallerName}).Debug("OnStart hook executing")
	case *fxevent.OnStartExecuted:
		entry := l.Logger.WithFields(logrus.Fields{"callee": e.FunctionName, "caller": e.CallerName})
		if e.Err != nil {
			entry.WithError(e.Err).Error("OnStart hook failed")
		} else {
			entry.WithField("runtime", e.Runtime.String()).Debug("OnStart hook executed")
		}
	case *fxevent.OnStopExecuting:
		l.Logger.WithFields(logrus.Fields{"callee": e.FunctionName, "caller": e.CallerName}).Debug("OnStop hook executing")
	case *fxevent.OnStopExecuted:
		entry := l.Logger.WithFields(logrus.Fields{"callee": e.FunctionName, "caller": e.CallerName})
		if e.Err != nil {
			entry.WithError(e.Err).Error("OnStop hook failed")
		} else {
			entry.WithField("runtime", e.Runtime.String()).Debug("OnStop hook executed")
		}
	case *fxevent.Supplied:
		if e.Err != nil {
			l.Logger.WithError(e.Err).WithField("type", e.TypeName).Error("Supplying failed")
		}
	case *fxevent.Provided:
		if e.Err != nil {
			l.Logger.WithError(e.Err).WithField("constructor", e.ConstructorName).Error("Providing failed")
			return
		}
		l.Logger.WithFields(logrus.Fields{
			"constructor": e.ConstructorName,
			"types":       strings.Join(e.OutputTypeNames, ", "),
		}).Debug("Provided")
	case *fxevent.Invoked:
		if e.Err != nil {
			l.Logger.WithError(e.Err).WithField("function", e.FunctionName).Error("Invoke failed")
		}
	case *fxevent.Stopping:
		l.Logger.WithField("signal", strings.ToUpper(e.Signal.String())).Info("Received signal")
	case *fxevent.Stopped:
		if e.Err != nil {
			l.Logger.WithError(e.Err).Error("Stop failed")
		}
	case *fxevent.RollingBack:
		l.Logger.WithError(e.StartErr).Error("Start failed, rolling back")
	case *fxevent.RolledBack:
		if e.Err != nil {
			l.Logger.WithError(e.Err).Error("Rollback failed")
		}
	case *fxevent.Started:
		if e.Err != nil {
			l.Logger.WithError(e.Err).Error("Start failed")
		} else {
			l.Logger.Debug("Started")
		}
	case *fxevent.LoggerInitialized:
		if e.Err != nil {
			l.Logger.WithError(e.Err).Error("Custom logger initialization failed")
		}
	}
}
