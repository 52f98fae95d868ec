package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"

	"upack.dev/cli/internal/core/build"
	"upack.dev/cli/internal/core/engine"
)

// promptMissingPaths asks for every path the request still lacks
func promptMissingPaths(req *build.Request) error {
	var fields []huh.Field

	if strings.TrimSpace(req.EngineRoot) == "" {
		fields = append(fields, huh.NewInput().
			Title("Engine root").
			Description("Folder containing the engine installations").
			Value(&req.EngineRoot).
			Validate(validateDir))
	}
	if strings.TrimSpace(req.PluginFile) == "" {
		fields = append(fields, huh.NewInput().
			Title("Plugin file").
			Description("The .uplugin descriptor or its folder").
			Value(&req.PluginFile).
			Validate(validateExists))
	}
	if strings.TrimSpace(req.PackageRoot) == "" {
		fields = append(fields, huh.NewInput().
			Title("Package folder").
			Description("Receives one folder per engine version").
			Value(&req.PackageRoot).
			Validate(validateNotEmpty))
	}

	if len(fields) == 0 {
		return nil
	}
	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return fmt.Errorf("prompt cancelled: %w", err)
	}
	return nil
}

// promptVersions lets the user pick from the detected versions
func promptVersions(available []engine.Version) ([]engine.Version, error) {
	var selected []string

	field := huh.NewMultiSelect[string]().
		Title("Engine versions").
		Description("Space to toggle, enter to confirm").
		Options(huh.NewOptions(engine.Strings(available)...)...).
		Value(&selected)

	if err := huh.NewForm(huh.NewGroup(field)).Run(); err != nil {
		return nil, fmt.Errorf("prompt cancelled: %w", err)
	}

	versions := make([]engine.Version, 0, len(selected))
	for _, v := range available {
		for _, s := range selected {
			if v.String() == s {
				versions = append(versions, v)
				break
			}
		}
	}
	return versions, nil
}

func validateNotEmpty(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("required")
	}
	return nil
}

func validateExists(s string) error {
	if err := validateNotEmpty(s); err != nil {
		return err
	}
	if _, err := os.Stat(s); err != nil {
		return fmt.Errorf("%s does not exist", s)
	}
	return nil
}

func validateDir(s string) error {
	if err := validateNotEmpty(s); err != nil {
		return err
	}
	info, err := os.Stat(s)
	if err != nil {
		return fmt.Errorf("%s does not exist", s)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a folder", s)
	}
	return nil
}
