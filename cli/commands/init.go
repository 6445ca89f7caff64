package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/satishbabariya/loom/cli/internal/config"
	"github.com/satishbabariya/loom/cli/internal/ui"
	"github.com/satishbabariya/loom/internal/adapters/database"
)

const starterModels = `version: "1.0"
models:
  - name: Package
    schema: Application
    table: tblPackage
    fields:
      - {name: id, column: intPackageId, id: true, type: int}
      - {name: name, column: strPackageName}
      - {name: packageType, column: intPackageTypeId, type: ref, target: PackageType}
  - name: PackageType
    schema: Application
    table: ublPackageType
    fields:
      - {name: id, column: intPackageTypeId, id: true, type: int}
      - {name: name, column: strPackageTypeName}
`

// initAnswers are the connection settings asked by init.
type initAnswers struct {
	Driver   string `survey:"driver"`
	Host     string `survey:"host"`
	Port     string `survey:"port"`
	User     string `survey:"user"`
	Password string `survey:"password"`
	Name     string `survey:"name"`
}

// ask is replaced in tests.
var ask = func(qs []*survey.Question, answers *initAnswers) error {
	return survey.Ask(qs, answers)
}

func newInitCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a .env with database settings and a starter models file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			answers := initAnswers{
				Driver: config.DefaultDriver,
				Host:   "127.0.0.1",
				Port:   strconv.Itoa(config.DefaultPort),
				User:   "root",
				Name:   "loom",
			}
			if !yes {
				ui.PrintHeader("loom", "Project setup")
				if err := ask(initQuestions(), &answers); err != nil {
					return fmt.Errorf("init aborted: %w", err)
				}
			}
			return a.writeProject(answers, yes)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Accept defaults without prompting; existing files are kept")
	return cmd
}

func initQuestions() []*survey.Question {
	return []*survey.Question{
		{
			Name: "driver",
			Prompt: &survey.Select{
				Message: "Database driver:",
				Options: []string{string(database.MySQL), string(database.Postgres), string(database.SQLite)},
				Default: config.DefaultDriver,
			},
		},
		{
			Name:     "host",
			Prompt:   &survey.Input{Message: "Host:", Default: "127.0.0.1"},
			Validate: survey.Required,
		},
		{
			Name:   "port",
			Prompt: &survey.Input{Message: "Port:", Default: strconv.Itoa(config.DefaultPort)},
			Validate: func(ans any) error {
				s, _ := ans.(string)
				if _, err := strconv.Atoi(s); err != nil {
					return errors.New("port must be a number")
				}
				return nil
			},
		},
		{
			Name:   "user",
			Prompt: &survey.Input{Message: "User:", Default: "root"},
		},
		{
			Name:   "password",
			Prompt: &survey.Password{Message: "Password:"},
		},
		{
			Name:   "name",
			Prompt: &survey.Input{Message: "Database name:", Default: "loom"},
		},
	}
}

func (a *app) writeProject(answers initAnswers, keepExisting bool) error {
	fs := config.AppFs

	envPath := filepath.Join(a.dir, ".env")
	write, err := shouldWrite(fs, envPath, keepExisting)
	if err != nil {
		return err
	}
	if write {
		values := map[string]string{
			"DATABASE_DRIVER":   answers.Driver,
			"DATABASE_HOST":     answers.Host,
			"DATABASE_PORT":     answers.Port,
			"DATABASE_USER":     answers.User,
			"DATABASE_PASSWORD": answers.Password,
			"DATABASE_NAME":     answers.Name,
		}
		if err := config.WriteEnv(fs, envPath, values); err != nil {
			return err
		}
		ui.PrintSuccess("Created %s", envPath)
	}

	write, err = shouldWrite(fs, a.cfg.ModelsPath, keepExisting)
	if err != nil {
		return err
	}
	if write {
		if err := afero.WriteFile(fs, a.cfg.ModelsPath, []byte(starterModels), 0644); err != nil {
			return fmt.Errorf("failed to write models file: %w", err)
		}
		ui.PrintSuccess("Created %s", a.cfg.ModelsPath)
	}

	ui.PrintInfo("Next: declare your models, then run loom render <model>")
	return nil
}

// shouldWrite reports whether path may be written, asking before
// overwriting unless keepExisting is set.
func shouldWrite(fs afero.Fs, path string, keepExisting bool) (bool, error) {
	if _, err := fs.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return true, nil
		}
		return false, err
	}
	if keepExisting {
		ui.PrintWarning("%s already exists, skipping", path)
		return false, nil
	}

	overwrite := false
	if err := survey.AskOne(&survey.Confirm{Message: fmt.Sprintf("Overwrite %s?", path)}, &overwrite); err != nil {
		return false, err
	}
	return overwrite, nil
}
