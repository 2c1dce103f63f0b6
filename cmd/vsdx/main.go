// Command vsdx inspects, renders and edits Visio drawings.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/benjaminschreck/go-vsdx/pkg/vsdx"
	"github.com/benjaminschreck/go-vsdx/pkg/vsdx/template"
)

const version = "0.1.0"

var (
	configPath string
	outputPath string
	dataPath   string
	showShapes bool
	pageName   string
	beforePage string
	afterPage  string
	pageIndex  int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "vsdx",
		Short: "Inspect and render Visio drawings",
		Long: `vsdx reads .vsdx drawings, expands {% for %} and {% showif %}
directives in shape text against a JSON or YAML data file, and edits
the page list.

Examples:
  vsdx info network.vsdx --shapes
  vsdx render network.vsdx -d hosts.yaml -o out.vsdx
  vsdx add-page network.vsdx --name Appendix --after Overview -o out.vsdx`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (default: VSDX_* environment)")

	infoCmd := &cobra.Command{
		Use:   "info <drawing.vsdx>",
		Short: "List pages, masters and optionally shapes",
		Args:  cobra.ExactArgs(1),
		RunE:  runInfo,
	}
	infoCmd.Flags().BoolVar(&showShapes, "shapes", false, "Print the shape tree of every page")

	renderCmd := &cobra.Command{
		Use:   "render <template.vsdx>",
		Short: "Expand directives against a data file",
		Args:  cobra.ExactArgs(1),
		RunE:  runRender,
	}
	renderCmd.Flags().StringVarP(&dataPath, "data", "d", "", "JSON, JSONC or YAML data file")
	renderCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output drawing")
	_ = renderCmd.MarkFlagRequired("data")
	_ = renderCmd.MarkFlagRequired("output")

	validateCmd := &cobra.Command{
		Use:   "validate <drawing.vsdx>",
		Short: "Report formulas that reference missing shapes",
		Args:  cobra.ExactArgs(1),
		RunE:  runValidate,
	}

	addPageCmd := &cobra.Command{
		Use:   "add-page <drawing.vsdx>",
		Short: "Insert a blank page",
		Args:  cobra.ExactArgs(1),
		RunE:  runAddPage,
	}
	addPageCmd.Flags().StringVar(&pageName, "name", "", "Name of the new page")
	addPageCmd.Flags().StringVar(&beforePage, "before", "", "Insert before the named page")
	addPageCmd.Flags().StringVar(&afterPage, "after", "", "Insert after the named page")
	addPageCmd.Flags().IntVar(&pageIndex, "index", -1, "Insert at this index")
	addPageCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output drawing (default: overwrite input)")
	addPageCmd.MarkFlagsMutuallyExclusive("before", "after", "index")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vsdx version %s\n", version)
		},
	}

	rootCmd.AddCommand(infoCmd, renderCmd, validateCmd, addPageCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*vsdx.Config, error) {
	if configPath == "" {
		return vsdx.GetGlobalConfig(), nil
	}
	config, err := vsdx.LoadConfigFile(configPath)
	if err != nil {
		return nil, err
	}
	vsdx.SetGlobalConfig(config)
	return config, nil
}

func open(path string) (*vsdx.Document, error) {
	config, err := loadConfig()
	if err != nil {
		return nil, err
	}
	doc, err := vsdx.OpenWithConfig(path, config)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return doc, nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	doc, err := open(args[0])
	if err != nil {
		return err
	}
	defer doc.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d pages, %d masters\n", doc.Filename(), doc.PageCount(), len(doc.Masters()))
	for _, m := range doc.Masters() {
		fmt.Fprintf(out, "  master %s\n", m)
	}
	for _, page := range doc.Pages() {
		fmt.Fprintf(out, "  page %d %q (%gx%g, %d shapes, max id %d)\n",
			page.Index(), page.Name(), page.Width(), page.Height(), len(page.AllShapes()), page.MaxID())
		if showShapes {
			for _, shape := range page.ChildShapes() {
				printShape(out, shape, 2)
			}
		}
	}
	return nil
}

// truncate shortens s to at most limit runes, ending in "..." when cut
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}

func printShape(w io.Writer, shape *vsdx.Shape, depth int) {
	text := truncate(strings.TrimSpace(shape.Text()), 40)
	fmt.Fprintf(w, "%s%s %s %q", strings.Repeat("  ", depth), shape.ID(), shape.Kind(), shape.Name())
	if master := shape.MasterPageID(); master != "" {
		fmt.Fprintf(w, " master=%s", master)
	}
	if text != "" {
		fmt.Fprintf(w, " text=%q", text)
	}
	fmt.Fprintln(w)
	for _, sub := range shape.SubShapes() {
		printShape(w, sub, depth+1)
	}
}

func runRender(cmd *cobra.Command, args []string) error {
	data, err := template.LoadDataFile(dataPath)
	if err != nil {
		return err
	}

	doc, err := open(args[0])
	if err != nil {
		return err
	}
	defer doc.Close()

	if err := doc.Expand(data); err != nil {
		var multi *vsdx.MultiError
		if errors.As(err, &multi) {
			for _, e := range multi.Errors() {
				fmt.Fprintln(cmd.ErrOrStderr(), e)
			}
		}
		return fmt.Errorf("render failed: %w", err)
	}

	if err := doc.Save(outputPath); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "rendered %d pages\n", doc.PageCount())
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	doc, err := open(args[0])
	if err != nil {
		return err
	}
	defer doc.Close()

	err = doc.ValidateReferences()
	var verr *vsdx.ValidationError
	if errors.As(err, &verr) {
		for _, issue := range verr.Issues {
			fmt.Fprintln(cmd.OutOrStdout(), issue)
		}
		return fmt.Errorf("%d dangling references", len(verr.Issues))
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "ok")
	return nil
}

func runAddPage(cmd *cobra.Command, args []string) error {
	pos := vsdx.Last()
	switch {
	case beforePage != "":
		pos = vsdx.Before(beforePage)
	case afterPage != "":
		pos = vsdx.After(afterPage)
	case pageIndex >= 0:
		pos = vsdx.AtIndex(pageIndex)
	}

	doc, err := open(args[0])
	if err != nil {
		return err
	}
	defer doc.Close()

	page, err := doc.AddPage(pageName, pos)
	if err != nil {
		return err
	}

	target := outputPath
	if target == "" {
		target = args[0]
	}
	if err := doc.Save(target); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "added page %q at %s\n", page.Name(), pos)
	return nil
}
