// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/cobaltcore-dev/flavor-matcher/internal/api"
	"github.com/cobaltcore-dev/flavor-matcher/internal/classification"
	"github.com/cobaltcore-dev/flavor-matcher/internal/enrollment"
	"github.com/cobaltcore-dev/flavor-matcher/internal/flavor"
)

// Exit codes of the local commands.
const (
	exitOK           = 0
	exitFailed       = 1
	exitInvalidInput = 2
)

// Load the flavor directory and print one line per flavor.
func checkFlavors(stdout, stderr io.Writer, dir string) int {
	specs, err := flavor.LoadDir(dir)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailed
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tMEMORY_GB\tCPU\tDISK_GB\tMODEL\tOVERRIDES\tRESOURCE_CLASS")
	for _, s := range specs {
		model := "*"
		if len(s.ModelPatterns) > 0 {
			model = strings.Join(s.ModelPatterns, ",")
		}
		overrides := make([]string, 0, len(s.BaseboardOverrides))
		for _, o := range s.BaseboardOverrides {
			overrides = append(overrides, o.Key)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%s\t%s\t%s\n",
			s.Name, s.MemoryGB, s.CPU, s.DiskGB, model,
			strings.Join(overrides, ","), flavor.ResourceClass(s.Name),
		)
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailed
	}
	fmt.Fprintf(stdout, "%d flavors loaded from %s\n", len(specs), dir)
	return exitOK
}

// Classify the machine described by the classify request on stdin and
// print the chosen flavor.
func classifyStdin(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, classifier *classification.Classifier) int {
	var request api.ClassifyRequest
	if err := json.NewDecoder(stdin).Decode(&request); err != nil {
		fmt.Fprintf(stderr, "failed to decode classify request: %v\n", err)
		return exitInvalidInput
	}
	m, err := request.Machine()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitInvalidInput
	}
	source := request.Source
	if source == "" {
		source = "cli"
	}
	decision, err := classifier.Classify(ctx, source, m)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailed
	}
	fmt.Fprintln(stdout, decision.Flavor)
	return exitOK
}

type nodeEnroller interface {
	EnrollAll(ctx context.Context) ([]enrollment.Result, error)
}

// Enroll all nodes and print the results as json.
func enrollNodes(ctx context.Context, stdout, stderr io.Writer, enroller nodeEnroller) int {
	results, err := enroller.EnrollAll(ctx)
	if results == nil && err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailed
	}
	encoder := json.NewEncoder(stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(results); err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailed
	}
	if err != nil {
		var failed int
		for _, r := range results {
			if r.Error != "" {
				failed++
			}
		}
		fmt.Fprintf(stderr, "%d of %d nodes failed:\n%v\n", failed, len(results), err)
		return exitFailed
	}
	return exitOK
}
