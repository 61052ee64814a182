package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"packcam/internal/config"
	"packcam/internal/services"
	"packcam/internal/store"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigValidateCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigSetCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file, then use 'packcam config set' to pick a save directory.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load("")
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current recording configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st store.Store) error {
				cfg, err := st.GetConfig(cmd.Context())
				if err != nil {
					return err
				}
				rows := [][]string{
					{"Save directory", valueOrDash(cfg.SaveDir)},
					{"Camera mode", cfg.CameraMode},
					{"Remote stream URL", valueOrDash(cfg.RemoteStreamURL)},
					{"Operator", valueOrDash(cfg.OperatorName)},
					{"Remote transcode", fmt.Sprintf("%t", cfg.RemoteTranscode)},
					{"Scale to 1080p", fmt.Sprintf("%t", cfg.ScaleTo1080)},
					{"Overlay enabled", fmt.Sprintf("%t", cfg.OverlayEnabled)},
					{"Overlay template", valueOrDash(cfg.OverlayTemplate)},
					{"Local device", valueOrDash(cfg.LocalDeviceID)},
					{"Store backend", st.Backend()},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]column{{title: "Setting"}, {title: "Value"}}, rows))
				return nil
			})
		},
	}
}

func newConfigSetCommand(ctx *commandContext) *cobra.Command {
	var (
		saveDir         string
		cameraMode      string
		remoteURL       string
		operator        string
		deviceID        string
		overlayTemplate string
		remoteTranscode bool
		scaleTo1080     bool
		overlayEnabled  bool
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update the recording configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st store.Store) error {
				cfg, err := st.GetConfig(cmd.Context())
				if err != nil {
					return err
				}

				flags := cmd.Flags()
				if flags.Changed("save-dir") {
					expanded, err := config.ExpandPath(saveDir)
					if err != nil {
						return fmt.Errorf("resolve save directory: %w", err)
					}
					cfg.SaveDir = expanded
				}
				if flags.Changed("camera-mode") {
					if cameraMode != store.CameraModeLocal && cameraMode != store.CameraModeRemote {
						return services.Wrap(services.ErrInputRejected, "cli", "config set",
							fmt.Sprintf("camera mode must be %q or %q", store.CameraModeLocal, store.CameraModeRemote), nil)
					}
					cfg.CameraMode = cameraMode
				}
				if flags.Changed("remote-url") {
					cfg.RemoteStreamURL = remoteURL
				}
				if flags.Changed("operator") {
					cfg.OperatorName = operator
				}
				if flags.Changed("device") {
					cfg.LocalDeviceID = deviceID
				}
				if flags.Changed("overlay-template") {
					cfg.OverlayTemplate = overlayTemplate
				}
				if flags.Changed("remote-transcode") {
					cfg.RemoteTranscode = remoteTranscode
				}
				if flags.Changed("scale-1080") {
					cfg.ScaleTo1080 = scaleTo1080
				}
				if flags.Changed("overlay") {
					cfg.OverlayEnabled = overlayEnabled
				}

				if err := st.SetConfig(cmd.Context(), cfg); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Configuration saved")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&saveDir, "save-dir", "", "Directory recordings are written to")
	cmd.Flags().StringVar(&cameraMode, "camera-mode", "", "Capture mode: local or remote")
	cmd.Flags().StringVar(&remoteURL, "remote-url", "", "Remote stream URL for remote mode")
	cmd.Flags().StringVar(&operator, "operator", "", "Current operator name")
	cmd.Flags().StringVar(&deviceID, "device", "", "Local capture device id, empty for default")
	cmd.Flags().StringVar(&overlayTemplate, "overlay-template", "", "Overlay text template")
	cmd.Flags().BoolVar(&remoteTranscode, "remote-transcode", false, "Re-encode the remote stream instead of copying")
	cmd.Flags().BoolVar(&scaleTo1080, "scale-1080", false, "Upscale finished recordings to 1080p")
	cmd.Flags().BoolVar(&overlayEnabled, "overlay", true, "Composite the text overlay onto local recordings")
	return cmd
}

func valueOrDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
