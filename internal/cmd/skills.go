package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/overdrive-dev/overdrive/internal/skills"
)

var skillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "Inspect skill documents",
}

var skillsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available skills",
	Long: `List every skill visible to this project: built-in mode briefings plus
any SKILL.md documents in the project's skill directories. Project
skills shadow built-ins with the same name.`,
	Args: cobra.NoArgs,
	RunE: runSkillsList,
}

var skillsShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a skill's injected body",
	Args:  cobra.ExactArgs(1),
	RunE:  runSkillsShow,
}

func init() {
	skillsCmd.AddCommand(skillsListCmd)
	skillsCmd.AddCommand(skillsShowCmd)
	rootCmd.AddCommand(skillsCmd)
}

func loadSkills() (*skills.Registry, error) {
	a, err := newApp()
	if err != nil {
		return nil, err
	}
	defer a.close()
	return skills.LoadRegistry(a.skillDirs()...)
}

func runSkillsList(cmd *cobra.Command, args []string) error {
	registry, err := loadSkills()
	if err != nil {
		return err
	}
	for _, sk := range registry.List() {
		fmt.Printf("%-12s %-8s %s\n", sk.Name, sk.Source, sk.Description)
	}
	return nil
}

func runSkillsShow(cmd *cobra.Command, args []string) error {
	registry, err := loadSkills()
	if err != nil {
		return err
	}
	sk := registry.Get(args[0])
	if sk == nil {
		return fmt.Errorf("no skill named %q", args[0])
	}
	fmt.Println(sk.Inject())
	return nil
}
