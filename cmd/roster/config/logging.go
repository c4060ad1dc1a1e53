package config

import (
	"github.com/pkg/errors"
	"github.com/zachmann/go-utils/fileutils"

	"github.com/pnp-roster/roster/internal/logger"
)

// loggingConf holds all logging-related configuration under the `logging` key.
//
// YAML example:
//
//	logging:
//	  access:
//	    dir: /var/log/roster
//	    stderr: false
//	  internal:
//	    dir: /var/log/roster
//	    stderr: false
//	    level: INFO
type loggingConf struct {
	Access   LoggerConf         `yaml:"access"`
	Internal internalLoggerConf `yaml:"internal"`
}

// internalLoggerConf configures application-internal logging.
// Level accepts standard log levels (e.g. DEBUG, INFO, WARN, ERROR).
type internalLoggerConf struct {
	LoggerConf `yaml:",inline"`
	Level      string `yaml:"level"`
}

// LoggerConf holds configuration related to logging
type LoggerConf struct {
	Dir    string `yaml:"dir"`
	StdErr bool   `yaml:"stderr"`
}

func checkLoggingDirExists(dir string) error {
	if dir != "" && !fileutils.FileExists(dir) {
		return errors.Errorf("logging directory '%s' does not exist", dir)
	}
	return nil
}

func (log *loggingConf) validate() error {
	if err := checkLoggingDirExists(log.Access.Dir); err != nil {
		return err
	}
	return checkLoggingDirExists(log.Internal.Dir)
}

// InternalLoggerConf returns the logger.InternalConf of this section
func (log loggingConf) InternalLoggerConf() logger.InternalConf {
	return logger.InternalConf{
		Conf: logger.Conf{
			Dir:    log.Internal.Dir,
			StdErr: log.Internal.StdErr,
		},
		Level: log.Internal.Level,
	}
}

// AccessLoggerConf returns the logger.Conf of the access log
func (log loggingConf) AccessLoggerConf() logger.Conf {
	return logger.Conf{
		Dir:    log.Access.Dir,
		StdErr: log.Access.StdErr,
	}
}

var defaultLoggingConf = loggingConf{
	Internal: internalLoggerConf{
		Level: "INFO",
	},
}
