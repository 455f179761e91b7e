package cmd

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shqear93/rbzk"
	"github.com/spf13/viper"
)

// correlationLogger tags every line with a per-invocation uuid so that log
// output from concurrent CLI runs against different devices can be told
// apart, per SPEC_FULL.md's domain-stack note on github.com/google/uuid.
type correlationLogger struct {
	id      string
	std     *log.Logger
	err     *log.Logger
	verbose bool
}

func newCorrelationLogger(verbose bool) *correlationLogger {
	id := uuid.New().String()[:8]
	return &correlationLogger{
		id:      id,
		std:     log.New(os.Stdout, fmt.Sprintf("[%s] ", id), log.LstdFlags),
		err:     log.New(os.Stderr, fmt.Sprintf("[%s] ", id), log.LstdFlags),
		verbose: verbose,
	}
}

func (l *correlationLogger) Info(v ...interface{})                  { l.std.Print(v...) }
func (l *correlationLogger) Infof(format string, v ...interface{})  { l.std.Printf(format, v...) }
func (l *correlationLogger) Error(v ...interface{})                 { l.err.Println(v...) }
func (l *correlationLogger) Errorf(format string, v ...interface{}) { l.err.Printf(format, v...) }

func (l *correlationLogger) Debug(v ...interface{}) {
	if l.verbose {
		l.std.Print(v...)
	}
}

func (l *correlationLogger) Debugf(format string, v ...interface{}) {
	if l.verbose {
		l.std.Printf(format, v...)
	}
}

// optionsFromViper builds rbzk.Options from the bound flags/config/env,
// following spec.md §6's constructor contract
// (ip, port, timeout, password, force_udp, omit_ping, verbose, encoding).
func optionsFromViper() rbzk.Options {
	return rbzk.Options{
		IP:       viper.GetString("ip"),
		Port:     viper.GetInt("port"),
		Timeout:  time.Duration(viper.GetInt("timeout")) * time.Second,
		Password: viper.GetInt("password"),
		ForceUDP: viper.GetBool("force_udp"),
		OmitPing: viper.GetBool("no_ping"),
		Verbose:  viper.GetBool("verbose"),
		Encoding: viper.GetString("encoding"),
	}
}

// connectClient builds a *rbzk.ZK from the resolved configuration and
// connects it, swapping in a correlation-tagged logger first.
func connectClient() (*rbzk.ZK, error) {
	opts := optionsFromViper()
	if opts.IP == "" {
		return nil, fmt.Errorf("no device IP configured: pass --ip or set it via 'rbzk config-set ip <addr>'")
	}
	rbzk.Log = newCorrelationLogger(opts.Verbose)

	zk := rbzk.New(opts)
	if err := zk.Connect(); err != nil {
		return nil, fmt.Errorf("connect to %s:%d: %w", opts.IP, opts.Port, err)
	}
	return zk, nil
}

// withClient connects, runs fn, and disconnects regardless of fn's outcome.
func withClient(fn func(zk *rbzk.ZK) error) error {
	zk, err := connectClient()
	if err != nil {
		return err
	}
	defer zk.Disconnect()
	return fn(zk)
}
