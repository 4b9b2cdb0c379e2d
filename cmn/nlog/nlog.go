// Package nlog is the pipeline's leveled logger: unbuffered, timestamped
// writes to stderr (or, once SetLogDirRole is called, appended to a single
// log file instead; there is no rotation),
// used by every core package in place of the standard "log" package so that
// router/dispatcher/processor warnings share one format and one sink.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package nlog

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

type severity int

const (
	sevInfo severity = iota
	sevWarn
	sevErr
)

func (s severity) char() byte {
	switch s {
	case sevWarn:
		return 'W'
	case sevErr:
		return 'E'
	default:
		return 'I'
	}
}

var (
	mu    sync.Mutex
	out   io.Writer = os.Stderr
	title string
)

// SetLogDirRole directs subsequent output to dir/role.log instead of
// stderr; role is typically the dispatcher or source instance name.
func SetLogDirRole(dir, role string) {
	mu.Lock()
	defer mu.Unlock()
	if dir == "" {
		out = os.Stderr
		return
	}
	f, err := os.OpenFile(dir+"/"+role+".log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "nlog: cannot open log file: %v\n", err)
		return
	}
	out = f
}

// SetTitle tags every subsequent line (e.g. with a dispatcher instance id).
func SetTitle(s string) { title = s }

func log(sev severity, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	ts := time.Now().Format("15:04:05.000000")
	prefix := fmt.Sprintf("%c %s ", sev.char(), ts)
	if title != "" {
		prefix += title + " "
	}
	if format == "" {
		fmt.Fprint(out, prefix, fmt.Sprintln(args...))
	} else {
		fmt.Fprintf(out, prefix+format+"\n", args...)
	}
}

func Infoln(args ...any)                  { log(sevInfo, "", args...) }
func Infof(format string, args ...any)    { log(sevInfo, format, args...) }
func Warningln(args ...any)               { log(sevWarn, "", args...) }
func Warningf(format string, args ...any) { log(sevWarn, format, args...) }
func Errorln(args ...any)                 { log(sevErr, "", args...) }
func Errorf(format string, args ...any)   { log(sevErr, format, args...) }

// Flush is a no-op placeholder kept for callers that run it on shutdown;
// os.File writes here are unbuffered.
func Flush(...bool) {}
