// SPDX-License-Identifier: MPL-2.0

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/suddenlysixam/rpi-image-gen/internal/dag"
	"github.com/suddenlysixam/rpi-image-gen/internal/deps"
	"github.com/suddenlysixam/rpi-image-gen/internal/issue"
	"github.com/suddenlysixam/rpi-image-gen/internal/metadata"
	"github.com/suddenlysixam/rpi-image-gen/internal/registry"
	"github.com/suddenlysixam/rpi-image-gen/internal/resolver"
)

// issueFor maps a failure to its catalog entry so remediation guidance
// can be rendered under the error message. Returns nil when the catalog
// has nothing to say about the error.
func issueFor(err error) *issue.Issue {
	var (
		cycle     *dag.CycleError
		collision *registry.NameCollisionError
		missing   *deps.MissingLayerError
		noProv    *deps.NoProviderError
		ambProv   *deps.AmbiguousProviderError
		missVar   *resolver.MissingVariableError
		invalid   *resolver.ValidationError
		parse     *metadata.ParseError
		cfgParse  viper.ConfigParseError
	)
	switch {
	case errors.As(err, &cycle):
		return issue.Get(issue.DependencyCycleId)
	case errors.As(err, &collision):
		return issue.Get(issue.LayerCollisionId)
	case errors.As(err, &missing):
		return issue.Get(issue.LayerNotFoundId)
	case errors.As(err, &noProv), errors.As(err, &ambProv):
		return issue.Get(issue.ProviderAmbiguityId)
	case errors.As(err, &missVar):
		return issue.Get(issue.EnvVarMissingId)
	case errors.As(err, &invalid):
		return issue.Get(issue.ValidationFailedId)
	case errors.As(err, &parse):
		if strings.Contains(parse.Reason, "unsupported field") {
			return issue.Get(issue.UnsupportedFieldId)
		}
		return issue.Get(issue.MetadataParseErrorId)
	case errors.As(err, &cfgParse):
		return issue.Get(issue.ConfigLoadFailedId)
	}
	return nil
}

// printGuidance renders the catalog entry for err to stderr, if any.
func printGuidance(err error) {
	iss := issueFor(err)
	if iss == nil {
		return
	}
	if guidance, rerr := iss.Render("auto"); rerr == nil {
		fmt.Fprint(os.Stderr, guidance)
	}
}
