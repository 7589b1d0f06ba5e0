// Package notify provides the NOTICE/WARNING/ERROR stream the rest of the
// engine reports through, modeled on the teacher's per-object structured
// logging convention (fs.Errorf(subject, format, args...)) but backed by
// logrus instead of a bespoke level type.
package notify

import (
	"github.com/sirupsen/logrus"
)

// Notifier is the collaborator the snapshot session, builder, and replayer
// report progress and problems through. It replaces the Python
// ConsoleNotifier one-for-one; spec.md treats console notification as an
// external collaborator, so only the interface and a concrete logrus-backed
// implementation are specified here.
type Notifier interface {
	Notice(subject, format string, args ...any)
	Warning(subject, format string, args ...any)
	Error(subject string, err error, format string, args ...any)
}

// Logrus is a Notifier that writes structured entries via logrus, carrying
// the subject (a path, a USN, a hash) as a field rather than interpolating
// it into the message.
type Logrus struct {
	log *logrus.Logger
}

// NewLogrus builds a Logrus notifier writing to the given logrus.Logger. If
// log is nil, logrus.StandardLogger() is used.
func NewLogrus(log *logrus.Logger) *Logrus {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Logrus{log: log}
}

func (n *Logrus) Notice(subject, format string, args ...any) {
	n.log.WithField("subject", subject).Infof(format, args...)
}

func (n *Logrus) Warning(subject, format string, args ...any) {
	n.log.WithField("subject", subject).Warnf(format, args...)
}

func (n *Logrus) Error(subject string, err error, format string, args ...any) {
	entry := n.log.WithField("subject", subject)
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Errorf(format, args...)
}
