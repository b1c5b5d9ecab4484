package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gide/internal/config"

	"gopkg.in/yaml.v3"
)

// Profile describes a set of config files derived from shared bases.
type Profile struct {
	OutputDir string                   `yaml:"outputDir"`
	Judge     JudgeProfile             `yaml:"judge"`
	Targets   map[string]TargetProfile `yaml:"targets"`
}

// JudgeProfile is applied to every target. APIHost is always written so a
// self-hosted judge can drop the RapidAPI host header.
type JudgeProfile struct {
	BaseURL string `yaml:"baseURL"`
	APIHost string `yaml:"apiHost"`
}

type TargetProfile struct {
	Base      string                 `yaml:"base"`
	Output    string                 `yaml:"output"`
	Overrides map[string]interface{} `yaml:"overrides"`
}

func main() {
	profilePath := flag.String("profile", "configs/dev-profile.yaml", "Path to config profile")
	outputDir := flag.String("output-dir", "", "Override output directory")
	flag.Parse()

	written, err := render(*profilePath, *outputDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	for _, path := range written {
		fmt.Println(path)
	}
}

// render writes one validated config per target and returns their paths.
func render(profilePath, outputDir string) ([]string, error) {
	profilePathAbs, err := filepath.Abs(profilePath)
	if err != nil {
		return nil, fmt.Errorf("resolve profile path failed: %w", err)
	}
	profile, err := loadProfile(profilePathAbs)
	if err != nil {
		return nil, fmt.Errorf("load profile failed: %w", err)
	}
	if outputDir != "" {
		profile.OutputDir = outputDir
	}
	if profile.OutputDir == "" {
		return nil, errors.New("output directory is required")
	}
	profileDir := filepath.Dir(profilePathAbs)
	if !filepath.IsAbs(profile.OutputDir) {
		profile.OutputDir = filepath.Join(profileDir, profile.OutputDir)
	}
	if err := os.MkdirAll(profile.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory failed: %w", err)
	}

	names := make([]string, 0, len(profile.Targets))
	for name := range profile.Targets {
		names = append(names, name)
	}
	sort.Strings(names)

	written := make([]string, 0, len(names))
	for _, name := range names {
		target := profile.Targets[name]
		if target.Base == "" {
			return nil, fmt.Errorf("target %q missing base config", name)
		}
		if !filepath.IsAbs(target.Base) {
			target.Base = filepath.Join(profileDir, target.Base)
		}

		baseConfig, err := loadYAML(target.Base)
		if err != nil {
			return nil, fmt.Errorf("load base config for %q failed: %w", name, err)
		}
		baseConfig = normalizeValue(baseConfig)
		if len(target.Overrides) > 0 {
			merged, err := mergeMap(baseConfig, normalizeValue(target.Overrides))
			if err != nil {
				return nil, fmt.Errorf("merge overrides for %q failed: %w", name, err)
			}
			baseConfig = merged
		}
		baseConfig, err = applySharedJudge(profile.Judge, baseConfig)
		if err != nil {
			return nil, fmt.Errorf("apply shared judge for %q failed: %w", name, err)
		}

		outputPath, err := resolveOutputPath(profile.OutputDir, target)
		if err != nil {
			return nil, fmt.Errorf("resolve output path for %q failed: %w", name, err)
		}
		if err := writeYAML(outputPath, baseConfig); err != nil {
			return nil, fmt.Errorf("write config for %q failed: %w", name, err)
		}
		if _, err := config.Load(outputPath); err != nil {
			return nil, fmt.Errorf("generated config for %q is invalid: %w", name, err)
		}
		written = append(written, outputPath)
	}
	return written, nil
}

func loadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile failed: %w", err)
	}

	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("parse profile failed: %w", err)
	}
	if len(profile.Targets) == 0 {
		return nil, errors.New("profile has no targets")
	}
	return &profile, nil
}

func loadYAML(path string) (interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read yaml failed: %w", err)
	}

	var value interface{}
	if err := yaml.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("parse yaml failed: %w", err)
	}
	return value, nil
}

func writeYAML(path string, value interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir failed: %w", err)
	}
	data, err := yaml.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal yaml failed: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write yaml failed: %w", err)
	}
	return nil
}

func resolveOutputPath(outputDir string, target TargetProfile) (string, error) {
	output := target.Output
	if output == "" {
		output = filepath.Base(target.Base)
	}
	if output == "" {
		return "", errors.New("output path is empty")
	}
	if filepath.IsAbs(output) {
		return output, nil
	}
	return filepath.Join(outputDir, output), nil
}

func normalizeValue(value interface{}) interface{} {
	switch typed := value.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(typed))
		for k, v := range typed {
			out[k] = normalizeValue(v)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(typed))
		for k, v := range typed {
			key, ok := k.(string)
			if !ok {
				key = fmt.Sprintf("%v", k)
			}
			out[key] = normalizeValue(v)
		}
		return out
	case []interface{}:
		out := make([]interface{}, 0, len(typed))
		for _, item := range typed {
			out = append(out, normalizeValue(item))
		}
		return out
	default:
		return value
	}
}

func mergeMap(base interface{}, override interface{}) (interface{}, error) {
	baseMap, ok := base.(map[string]interface{})
	if !ok {
		return nil, errors.New("base config is not a map")
	}
	overrideMap, ok := override.(map[string]interface{})
	if !ok {
		return nil, errors.New("override config is not a map")
	}

	merged := make(map[string]interface{}, len(baseMap))
	for k, v := range baseMap {
		merged[k] = v
	}
	for key, overrideValue := range overrideMap {
		baseChild, baseIsMap := merged[key].(map[string]interface{})
		overrideChild, overrideIsMap := overrideValue.(map[string]interface{})
		if baseIsMap && overrideIsMap {
			combined, err := mergeMap(baseChild, overrideChild)
			if err != nil {
				return nil, err
			}
			merged[key] = combined
			continue
		}
		merged[key] = overrideValue
	}
	return merged, nil
}

func applySharedJudge(shared JudgeProfile, cfg interface{}) (interface{}, error) {
	if shared.BaseURL == "" && shared.APIHost == "" {
		return cfg, nil
	}
	root, ok := cfg.(map[string]interface{})
	if !ok {
		return nil, errors.New("config is not a map")
	}
	judgeSection, ok := root["judge"].(map[string]interface{})
	if !ok {
		judgeSection = map[string]interface{}{}
		root["judge"] = judgeSection
	}
	if shared.BaseURL != "" {
		judgeSection["baseURL"] = shared.BaseURL
	}
	judgeSection["apiHost"] = shared.APIHost
	return root, nil
}
