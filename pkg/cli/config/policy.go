package config

import (
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/oracle/pkg/domain/model/policy"
	"github.com/urfave/cli/v3"
)

// Policy loads the operating policy from a YAML file. Without a file
// the built-in defaults apply.
type Policy struct {
	Path string
}

// Flags returns CLI flags for policy configuration
func (x *Policy) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "policy-file",
			Usage:       "Path to the policy YAML (thresholds, risk table, scan cadence)",
			Sources:     cli.EnvVars("ORACLE_POLICY_FILE"),
			Destination: &x.Path,
		},
	}
}

// Configure loads and validates the policy
func (x *Policy) Configure() (*policy.Policy, error) {
	if x.Path == "" {
		return policy.Default(), nil
	}

	data, err := os.ReadFile(filepath.Clean(x.Path))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read policy file", goerr.V("path", x.Path))
	}

	return policy.Parse(data)
}
