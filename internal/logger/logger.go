// Package logger configures the logrus standard logger and the access log
package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	internalLogFile = "roster.log"
	accessLogFile   = "access.log"
)

// Conf configures a log destination
type Conf struct {
	Dir    string
	StdErr bool
}

// InternalConf configures the internal application log
type InternalConf struct {
	Conf
	Level string
}

// Init configures the standard logrus logger
func Init(conf InternalConf) error {
	log.SetFormatter(
		&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		},
	)
	level := log.InfoLevel
	if conf.Level != "" {
		var err error
		level, err = log.ParseLevel(conf.Level)
		if err != nil {
			return errors.Wrapf(err, "invalid log level '%s'", conf.Level)
		}
	}
	log.SetLevel(level)
	w, err := writer(conf.Conf, internalLogFile)
	if err != nil {
		return err
	}
	log.SetOutput(w)
	return nil
}

// AccessWriter returns the writer the access log is written to
func AccessWriter(conf Conf) (io.Writer, error) {
	return writer(conf, accessLogFile)
}

func writer(conf Conf, filename string) (io.Writer, error) {
	if conf.Dir == "" {
		return os.Stderr, nil
	}
	f, err := os.OpenFile(filepath.Join(conf.Dir, filename), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
	if err != nil {
		return nil, errors.Wrap(err, "could not open log file")
	}
	if conf.StdErr {
		return io.MultiWriter(f, os.Stderr), nil
	}
	return f, nil
}
