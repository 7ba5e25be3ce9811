package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/samber/lo"

	"github.com/conneroisu/mailwright/internal/errors"
	"github.com/conneroisu/mailwright/internal/logging"
	"github.com/conneroisu/mailwright/internal/validation"
)

// validateConfig validates configuration values for correctness. Every
// failure is a configuration error so the CLI stops before any stage runs.
func validateConfig(config *Config) error {
	if err := validateBuildConfig(&config.Build); err != nil {
		return err
	}
	if err := validateServerConfig(&config.Server); err != nil {
		return err
	}
	if err := validateImagesConfig(&config.Images); err != nil {
		return err
	}
	if err := validateNotifyConfig(&config.Notify); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(config.Log.Level); err != nil {
		return invalid("log.level", err.Error())
	}
	if config.Log.Format != "text" && config.Log.Format != "json" {
		return invalid("log.format", fmt.Sprintf("unknown format %q (supported: text, json)", config.Log.Format))
	}
	return nil
}

func validateBuildConfig(config *BuildConfig) error {
	if config.StructureType == "" {
		return errors.NewConfigError(errors.ErrCodeStructureMissing,
			"build.structure_type is required (set --structure-type to standard or responsive)")
	}
	st, err := ParseStructureType(string(config.StructureType))
	if err != nil {
		return errors.NewConfigError(errors.ErrCodeStructureInvalid, err.Error())
	}
	config.StructureType = st

	env, err := ParseEnv(string(config.Env))
	if err != nil {
		return errors.NewConfigError(errors.ErrCodeEnvInvalid, err.Error())
	}
	config.Env = env

	if config.Folder != "" {
		if err := ValidateFolder(config.Folder); err != nil {
			return invalid("build.folder", err.Error())
		}
	}

	if len(config.TemplateExtensions) == 0 {
		return invalid("build.template_extensions", "at least one extension is required")
	}
	if err := validateExtensions("build.template_extensions", config.TemplateExtensions); err != nil {
		return err
	}
	if err := validateExtensions("build.image_extensions", config.ImageExtensions); err != nil {
		return err
	}

	if config.PreviewColumns < 1 {
		return invalid("build.preview_columns", "must be at least 1")
	}

	return nil
}

// validateExtensions accepts "tmpl" and ".tmpl" alike; the leading dot is
// added when paths are resolved. Extensions end up inside glob patterns, so
// separators and pattern syntax are rejected.
func validateExtensions(key string, exts []string) error {
	for _, ext := range exts {
		trimmed := strings.TrimPrefix(strings.TrimSpace(ext), ".")
		if trimmed == "" {
			return invalid(key, fmt.Sprintf("extension %q is empty", ext))
		}
		if strings.ContainsAny(trimmed, `/\*?[]{}`) {
			return invalid(key, fmt.Sprintf("extension %q must be a single suffix such as .tmpl", ext))
		}
	}
	return nil
}

func validateServerConfig(config *ServerConfig) error {
	// Port 0 lets the OS pick, which tests rely on.
	if config.Port < 0 || config.Port > 65535 {
		return invalid("server.port", fmt.Sprintf("port %d is not in valid range 0-65535", config.Port))
	}

	if config.Host != "" {
		dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
		for _, char := range dangerousChars {
			if strings.Contains(config.Host, char) {
				return invalid("server.host", "host contains dangerous character: "+char)
			}
		}
	}

	if !strings.HasPrefix(config.ReloadPath, "/") {
		return invalid("server.reload_path", "must start with /")
	}

	return nil
}

func validateImagesConfig(config *ImagesConfig) error {
	if config.JPEGQuality < 1 || config.JPEGQuality > 100 {
		return invalid("images.jpeg_quality", "must be between 1 and 100")
	}
	switch config.PNGCompression {
	case "default", "speed", "best", "none":
	default:
		return invalid("images.png_compression",
			fmt.Sprintf("unknown level %q (supported: default, speed, best, none)", config.PNGCompression))
	}
	return nil
}

func validateNotifyConfig(config *NotifyConfig) error {
	if !lo.Contains(Transports, config.Transport) {
		return invalid("notify.transport",
			fmt.Sprintf("unknown transport %q (supported: %s)", config.Transport, strings.Join(Transports, ", ")))
	}
	if _, err := validation.ValidateAddress(config.From); err != nil {
		return invalid("notify.from", err.Error())
	}
	if _, err := validation.ValidateAddress(config.To); err != nil {
		return invalid("notify.to", err.Error())
	}
	if config.Timeout <= 0 {
		return invalid("notify.timeout", "must be positive")
	}
	return nil
}

// ValidateFolder checks that folder names a single template directory. It is
// joined into output paths, so separators and traversal are rejected.
func ValidateFolder(folder string) error {
	if folder == "" {
		return fmt.Errorf("empty folder")
	}
	if folder == "." || folder == ".." || strings.Contains(folder, "..") {
		return fmt.Errorf("folder contains traversal: %s", folder)
	}
	if strings.ContainsAny(folder, `/\`) || filepath.Base(folder) != folder {
		return fmt.Errorf("folder must be a single directory name: %s", folder)
	}
	return nil
}

func invalid(key, message string) error {
	return errors.NewConfigError(errors.ErrCodeConfigInvalid, message).WithContext("key", key).WithPath(key)
}
