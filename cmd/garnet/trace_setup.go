package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"garnet/internal/trace"
)

// traceFlags mirrors the persistent --trace* flags of the root command.
type traceFlags struct {
	output    string
	level     string
	mode      string
	ringSize  int
	heartbeat time.Duration
}

func readTraceFlags(pf *pflag.FlagSet) (traceFlags, error) {
	var f traceFlags
	var errs []error
	get := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	var err error
	f.output, err = pf.GetString("trace")
	get(err)
	f.level, err = pf.GetString("trace-level")
	get(err)
	f.mode, err = pf.GetString("trace-mode")
	get(err)
	f.ringSize, err = pf.GetInt("trace-ring-size")
	get(err)
	f.heartbeat, err = pf.GetDuration("trace-heartbeat")
	get(err)
	return f, errors.Join(errs...)
}

// config returns ok=false when tracing stays off.
// --trace без уровня включает фазы; файл рядом с ring даёт both.
func (f traceFlags) config() (trace.Config, bool, error) {
	level, err := trace.ParseLevel(f.level)
	if err != nil {
		return trace.Config{}, false, fmt.Errorf("--trace-level: %w", err)
	}
	if level == trace.LevelOff && f.output != "" {
		level = trace.LevelPhase
	}
	if level == trace.LevelOff {
		return trace.Config{}, false, nil
	}
	mode, err := trace.ParseMode(f.mode)
	if err != nil {
		return trace.Config{}, false, fmt.Errorf("--trace-mode: %w", err)
	}
	if f.output != "" && mode == trace.ModeRing {
		mode = trace.ModeBoth
	}
	return trace.Config{Level: level, Mode: mode, OutputPath: f.output, RingSize: f.ringSize}, true, nil
}

// setupTracing attaches a tracer (or trace.Nop) to the command context.
// The heartbeat reports whatever status the driver last published.
func setupTracing(cmd *cobra.Command) (func(), error) {
	flags, err := readTraceFlags(cmd.Root().PersistentFlags())
	if err != nil {
		return nil, err
	}
	cfg, on, err := flags.config()
	if err != nil {
		return nil, err
	}
	if !on {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return func() {}, nil
	}
	tracer, err := trace.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("trace: %w", err)
	}
	activeRing = trace.FindRing(tracer)

	heartbeat := trace.StartHeartbeat(tracer, flags.heartbeat)
	ctx := trace.WithHeartbeat(trace.WithTracer(cmd.Context(), tracer), heartbeat)
	cmd.SetContext(ctx)
	cmd.Root().SetContext(ctx)
	activeLog.Debug("tracing enabled", "level", cfg.Level, "mode", cfg.Mode, "output", cfg.OutputPath)

	return func() {
		heartbeat.Stop()
		if err := errors.Join(tracer.Flush(), tracer.Close()); err != nil {
			activeLog.Warn("trace shutdown failed", "err", err)
		}
	}, nil
}
