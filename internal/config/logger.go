package config

import (
	"os"

	"github.com/sirupsen/logrus"
)

func NewLogger(cfg Log) *logrus.Logger {
	logg := logrus.New()
	logg.SetOutput(os.Stdout)

	if cfg.Format == "json" {
		logg.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logg.SetFormatter(&logrus.TextFormatter{})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logg.SetLevel(level)

	return logg
}
