package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is satisfied by both *logrus.Logger and *logrus.Entry, so contextual
// sub-loggers obtained via WithField can be passed around under the same type.
type Logger interface {
	logrus.FieldLogger
}

func New() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return logger
}
