package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kamal-hamza/lima-cli/pkg/ui"
)

var tagsCmd = &cobra.Command{
	Use:     "tags",
	Aliases: []string{"tag", "t"},
	Short:   "List and create tags",
}

var tagsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List every tag",
	Args:    cobra.NoArgs,
	RunE:    runTagsList,
}

var tagsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a tag",
	Example: `  lima tags create pla
  lima tags create "needs supports"`,
	Args: cobra.ExactArgs(1),
	RunE: runTagsCreate,
}

func init() {
	tagsCmd.AddCommand(tagsListCmd)
	tagsCmd.AddCommand(tagsCreateCmd)
}

func runTagsList(cmd *cobra.Command, args []string) error {
	tags, err := tagService.List(getContext(cmd))
	if err != nil {
		return fail("list tags", err)
	}
	if flagJSON {
		return printJSON(tags)
	}
	if len(tags) == 0 {
		printLine(ui.FormatInfo("No tags yet"))
		return nil
	}

	table := ui.NewTable([]ui.TableColumn{
		{Header: "TAG"},
		{Header: "COLOR"},
		{Header: "ID"},
	})
	for _, t := range tags {
		table.AddRow([]string{ui.TagChip(t.Name, t.Color), ui.OrEmpty(t.Color), t.ID})
	}
	printLine()
	fmt.Fprint(stdout, table.Render())
	printLine()
	printLine(ui.FormatMuted(fmt.Sprintf("%d tags", len(tags))))
	return nil
}

func runTagsCreate(cmd *cobra.Command, args []string) error {
	tag, err := tagService.Create(getContext(cmd), args[0])
	if err != nil {
		return fail("create tag", err)
	}
	if flagJSON {
		return printJSON(tag)
	}
	printLine(ui.FormatSuccess("Created tag " + ui.TagChip(tag.Name, tag.Color)))
	return nil
}
