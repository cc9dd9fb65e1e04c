// elSAGE: a read-context evidence engine for variant calling.
// Copyright (c) 2020 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/elprep/blob/master/LICENSE.txt>.

package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"time"

	"golang.org/x/sys/unix"

	"github.com/exascience/elsage/utils"
)

// ProgramMessage is the first line printed when the elsage binary is
// called.
var ProgramMessage = fmt.Sprint(
	"\n", utils.ProgramName, " version ", utils.ProgramVersion,
	" compiled with ", runtime.Version(), " - see ", utils.ProgramURL, " for more information.\n",
)

var (
	errMissingFilename = errors.New("missing filename")
	errNoPermission    = errors.New("no permission")
)

// fileError reports a problem with the file given for a command line
// parameter. Positional arguments have no parameter name.
type fileError struct {
	parameter, filename string
	err                 error
}

func (e *fileError) Error() string {
	msg := e.err.Error()
	if e.filename != "" {
		msg = fmt.Sprintf("%v: %v", e.filename, msg)
	}
	if e.parameter != "" {
		msg = fmt.Sprintf("%v (command line parameter %v)", msg, e.parameter)
	}
	return msg
}

func (e *fileError) Unwrap() error {
	return e.err
}

func checkFilename(parameter, filename string) error {
	if filename == "" {
		return &fileError{parameter: parameter, err: errMissingFilename}
	}
	if filename[0] == '-' {
		return &fileError{parameter: parameter, err: fmt.Errorf("%w before %v", errMissingFilename, filename)}
	}
	return nil
}

func classifyFileError(err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return errNoPermission
	}
	return err
}

// checkExist verifies that filename names an accessible file.
func checkExist(parameter, filename string) error {
	if err := checkFilename(parameter, filename); err != nil {
		return err
	}
	if _, err := os.Stat(filename); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = fs.ErrNotExist
		}
		return &fileError{parameter, filename, classifyFileError(err)}
	}
	return nil
}

// checkCreate verifies that filename can be created, creating missing
// parent directories on the way. Existing files are assumed to be
// output of earlier runs and may be overwritten.
func checkCreate(parameter, filename string) error {
	if err := checkFilename(parameter, filename); err != nil {
		return err
	}
	if _, err := os.Stat(filename); err == nil {
		return nil
	}
	err := os.MkdirAll(filepath.Dir(filename), 0o700)
	if err == nil {
		err = os.WriteFile(filename, nil, 0o666)
	}
	if err != nil {
		return &fileError{parameter, filename, classifyFileError(err)}
	}
	return os.Remove(filename)
}

func logFilename(now time.Time) string {
	zone, _ := now.Zone()
	return filepath.Join("logs", "elsage", fmt.Sprintf("elsage-%v-%09d-%v.log",
		now.Format("2006-01-02-15-04-05"), now.Nanosecond(), zone))
}

// setLogOutput duplicates everything written to stderr, including
// the log output, into a fresh log file below dir, or below $HOME
// when dir is empty.
func setLogOutput(dir string) error {
	if dir == "" {
		dir = os.Getenv("HOME")
	}
	fullPath := filepath.Join(dir, logFilename(time.Now()))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o700); err != nil {
		return err
	}
	f, err := os.Create(fullPath)
	if err != nil {
		return err
	}
	fmt.Fprintln(f, ProgramMessage)

	orgStderr, err := unix.Dup(2)
	if err != nil {
		return err
	}
	if err := unix.Dup2(int(f.Fd()), 2); err != nil {
		return err
	}
	log.SetOutput(io.MultiWriter(f, os.NewFile(uintptr(orgStderr), "/dev/stderr")))
	log.Println("Created log file at", fullPath)
	log.Println("Command line:", os.Args)
	return nil
}

// timedRun runs f, optionally under the CPU profiler and optionally
// logging the elapsed time.
func timedRun(timed bool, profile, msg string, f func() error) (err error) {
	if profile != "" {
		file, ferr := os.Create(profile)
		if ferr != nil {
			return ferr
		}
		if ferr = pprof.StartCPUProfile(file); ferr != nil {
			_ = file.Close()
			return ferr
		}
		defer func() {
			pprof.StopCPUProfile()
			if cerr := file.Close(); err == nil {
				err = cerr
			}
		}()
	}
	if timed {
		log.Println(msg)
		start := time.Now()
		defer func() {
			log.Println("Elapsed time:", time.Since(start))
		}()
	}
	return f()
}
