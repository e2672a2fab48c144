package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var level = zap.NewAtomicLevel()

// Init replaces the global zap logger. Production uses JSON output at info,
// every other environment a console logger at debug.
func Init(environment string) error {
	var conf zap.Config
	if environment == "production" {
		conf = zap.NewProductionConfig()
		level.SetLevel(zapcore.InfoLevel)
	} else {
		conf = zap.NewDevelopmentConfig()
		level.SetLevel(zapcore.DebugLevel)
	}
	conf.Level = level

	l, err := conf.Build()
	if err != nil {
		return fmt.Errorf("conf.Build -> %w", err)
	}
	zap.ReplaceGlobals(l)

	return nil
}

// SetLevel changes the level of the global logger in place.
func SetLevel(text string) error {
	if text == "" {
		return nil
	}
	if err := level.UnmarshalText([]byte(text)); err != nil {
		return fmt.Errorf("level.UnmarshalText -> %w", err)
	}

	return nil
}

func Level() zapcore.Level {
	return level.Level()
}
