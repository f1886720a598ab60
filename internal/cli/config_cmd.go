package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"photocarve/internal/config"
)

func newConfigCmd(root *Root) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change persisted settings",
		// settings are not validated here so that a bad stored value can be fixed
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return root.setup(cmd, false)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.configShow()
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.configShow()
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Persist a setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.configSet(args[0], args[1])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "unset <key>",
		Short: "Remove a persisted setting so its default applies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := setField(config.Default(), args[0], ""); isUnknownKey(err) {
				return err
			}
			return root.prefs.Delete(args[0])
		},
	})
	return cmd
}

func (r *Root) configShow() error {
	c := r.cfg
	fmt.Fprintf(r.out, "Preferences: %s\n", r.prefs.Path())
	fmt.Fprintf(r.out, "  %-18s %s\n", config.KeyDetector.Name, c.Detector)
	fmt.Fprintf(r.out, "  %-18s %d\n", config.KeyWidthLimit.Name, c.WidthLimit)
	fmt.Fprintf(r.out, "  %-18s %d\n", config.KeyMaxFeatures.Name, c.MaxFeatures)
	fmt.Fprintf(r.out, "  %-18s %d\n", config.KeyEdgeThreshold.Name, c.EdgeThreshold)
	fmt.Fprintf(r.out, "  %-18s %g\n", config.KeyRatio.Name, c.RatioThreshold)
	fmt.Fprintf(r.out, "  %-18s %s\n", config.KeySegmentation.Name, c.Segmentation)
	fmt.Fprintf(r.out, "  %-18s %t\n", config.KeyAlignment.Name, c.AlignmentEnabled)
	fmt.Fprintf(r.out, "  %-18s %g\n", config.KeyBrushRadius.Name, c.BrushRadius)
	if err := c.Validate(); err != nil {
		fmt.Fprintf(r.out, "warning: %v\n", err)
	}
	return nil
}

// configSet validates the change against the persisted settings before
// writing them back.
func (r *Root) configSet(key, value string) error {
	cfg, err := config.FromPrefs(r.prefs)
	if err != nil {
		return err
	}
	if cfg, err = setField(cfg, key, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(r.prefs, cfg); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	fmt.Fprintf(r.out, "%s = %s\n", key, value)
	return nil
}

type unknownKeyError struct{ key string }

func (e *unknownKeyError) Error() string {
	return fmt.Sprintf("unknown setting %q", e.key)
}

func isUnknownKey(err error) bool {
	_, ok := err.(*unknownKeyError)
	return ok
}

// setField parses value into the field named key.
func setField(cfg config.Config, key, value string) (config.Config, error) {
	var err error
	switch key {
	case config.KeyDetector.Name:
		cfg.Detector, err = config.ParseDetector(value)
	case config.KeySegmentation.Name:
		cfg.Segmentation, err = config.ParseSegmentation(value)
	case config.KeyWidthLimit.Name:
		cfg.WidthLimit, err = parseInt(key, value)
	case config.KeyMaxFeatures.Name:
		cfg.MaxFeatures, err = parseInt(key, value)
	case config.KeyEdgeThreshold.Name:
		cfg.EdgeThreshold, err = parseInt(key, value)
	case config.KeyRatio.Name:
		cfg.RatioThreshold, err = parseFloat(key, value)
	case config.KeyBrushRadius.Name:
		cfg.BrushRadius, err = parseFloat(key, value)
	case config.KeyAlignment.Name:
		cfg.AlignmentEnabled, err = strconv.ParseBool(value)
		if err != nil {
			err = &config.Error{Field: key, Value: value, Reason: "not a boolean"}
		}
	default:
		return cfg, &unknownKeyError{key: key}
	}
	return cfg, err
}

func parseInt(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, &config.Error{Field: key, Value: value, Reason: "not an integer"}
	}
	return n, nil
}

func parseFloat(key, value string) (float64, error) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, &config.Error{Field: key, Value: value, Reason: "not a number"}
	}
	return f, nil
}
