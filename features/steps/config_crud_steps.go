//go:build integration

package steps

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"vidflow/cmd"
	"vidflow/infrastructure/config"

	"github.com/cucumber/godog"
)

type configCrudContext struct {
	tempDir    string
	configPath string
	output     *bytes.Buffer
	err        error
}

var SharedConfigCrudContext = &configCrudContext{}

func InitializeConfigCrudScenario(ctx *godog.ScenarioContext) {
	testCtx := SharedConfigCrudContext

	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		tempDir, err := os.MkdirTemp("", "config-crud-test-*")
		if err != nil {
			return c, err
		}
		*testCtx = configCrudContext{
			tempDir:    tempDir,
			configPath: filepath.Join(tempDir, "config.yaml"),
			output:     &bytes.Buffer{},
		}
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if testCtx.tempDir != "" {
			os.RemoveAll(testCtx.tempDir)
		}
		return c, nil
	})

	ctx.Step(`^a config file exists with default values$`, testCtx.aConfigFileExistsWithDefaultValues)
	ctx.Step(`^I run config set "([^"]*)" to "([^"]*)"$`, testCtx.iRunConfigSet)
	ctx.Step(`^I run config get "([^"]*)"$`, testCtx.iRunConfigGet)
	ctx.Step(`^I run config list$`, testCtx.iRunConfigList)
	ctx.Step(`^the saved config value "([^"]*)" should be "([^"]*)"$`, testCtx.theSavedConfigValueShouldBe)
	ctx.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	ctx.Step(`^the command should fail mentioning "([^"]*)"$`, testCtx.theCommandShouldFailMentioning)
	ctx.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
}

func (c *configCrudContext) load() (*config.Config, error) {
	return config.Load(c.configPath)
}

func (c *configCrudContext) aConfigFileExistsWithDefaultValues() error {
	return config.Save(config.Default(), c.configPath)
}

func (c *configCrudContext) iRunConfigSet(key, value string) error {
	cfg, err := c.load()
	if err != nil {
		return err
	}
	c.err = cmd.RunConfigSetWithDependencies(cfg, c.configPath, key, value, c.output)
	return nil
}

func (c *configCrudContext) iRunConfigGet(key string) error {
	cfg, err := c.load()
	if err != nil {
		return err
	}
	c.err = cmd.RunConfigGetWithDependencies(cfg, c.configPath, key, c.output)
	return nil
}

func (c *configCrudContext) iRunConfigList() error {
	cfg, err := c.load()
	if err != nil {
		return err
	}
	c.err = cmd.RunConfigListWithDependencies(cfg, c.configPath, c.output)
	return nil
}

func (c *configCrudContext) theSavedConfigValueShouldBe(key, expected string) error {
	cfg, err := c.load()
	if err != nil {
		return err
	}
	got, err := config.NewConfigManager(cfg, c.configPath).Get(key)
	if err != nil {
		return err
	}
	if got != expected {
		return fmt.Errorf("expected %s %q, got %q", key, expected, got)
	}
	return nil
}

func (c *configCrudContext) theCommandShouldSucceed() error {
	if c.err != nil {
		return fmt.Errorf("expected success, got: %v", c.err)
	}
	return nil
}

func (c *configCrudContext) theCommandShouldFailMentioning(text string) error {
	if c.err == nil {
		return fmt.Errorf("expected an error mentioning %q", text)
	}
	if !strings.Contains(c.err.Error(), text) {
		return fmt.Errorf("expected error to mention %q, got: %v", text, c.err)
	}
	return nil
}

func (c *configCrudContext) theOutputShouldContain(text string) error {
	if !strings.Contains(c.output.String(), text) {
		return fmt.Errorf("expected output to contain %q, got:\n%s", text, c.output.String())
	}
	return nil
}
