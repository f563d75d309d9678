// Copyright 2019 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package main is the entry point for nodeshim.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/nodeshim/nodeshim/config"
	"github.com/nodeshim/nodeshim/core"
	"github.com/nodeshim/nodeshim/output"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatal(err)
	}

	out, err := core.New(cfg).Run(context.Background(), os.Args[1:])
	core.Exit(report(cfg, out, err))
}

// loadConfig layers the environment over the project and user .nodeshimrc files.
func loadConfig() (config.Config, error) {
	configs := []config.Config{config.FromEnv()}

	if path, err := config.LocateProjectConfigFile(); err == nil {
		projectConfig, err := config.FromFile(path)
		if err != nil {
			return nil, fmt.Errorf("could not read %s: %v", path, err)
		}
		configs = append(configs, projectConfig)
	}

	if path, err := config.LocateUserConfigFile(); err == nil {
		userConfig, err := config.FromFile(path)
		if err != nil {
			return nil, fmt.Errorf("could not read %s: %v", path, err)
		}
		configs = append(configs, userConfig)
	}

	return config.Layered(configs...), nil
}

// report writes the result of a run and returns the exit status that mirrors it.
func report(cfg config.Config, out string, err error) int {
	echoed := output.Enabled(cfg)

	if err == nil {
		if !echoed {
			fmt.Print(out)
		}
		return 0
	}

	var childErr *core.ChildProcessError
	if errors.As(err, &childErr) {
		if echoed {
			// The child's own output has already been shown.
			fmt.Fprintf(os.Stderr, "nodeshim: runtime exited with status %d\n", childErr.ExitCode)
		} else {
			fmt.Fprintln(os.Stderr, childErr.Error())
		}
		return childErr.StatusCode()
	}

	log.Print(err)
	return 1
}
