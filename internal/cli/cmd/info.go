package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kiwix/kiwix-reader/internal/cli/styles"
	"github.com/kiwix/kiwix-reader/internal/infrastructure/zim"
)

var infoJSON bool

// metadataKeys are the well-known archive metadata entries.
var metadataKeys = []string{
	"Title", "Description", "Language", "Creator", "Publisher",
	"Date", "Name", "Flavour", "Tags", "Source",
}

var infoCmd = &cobra.Command{
	Use:   "info <zim>",
	Short: "Show archive metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().BoolVar(&infoJSON, "json", false, "output as JSON")
}

// archiveInfo is the printable summary of an archive.
type archiveInfo struct {
	ID           string            `json:"id"`
	Path         string            `json:"path"`
	Title        string            `json:"title"`
	Version      string            `json:"version"`
	Entries      uint32            `json:"entries"`
	Articles     uint32            `json:"articles"`
	Clusters     uint32            `json:"clusters"`
	MainPage     string            `json:"main_page,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	MetadataKeys []string          `json:"-"`
}

func runInfo(cmd *cobra.Command, args []string) error {
	app := GetApp()
	if app == nil {
		return fmt.Errorf("app not initialized")
	}

	archive, err := zim.Open(app.Ctx(), args[0], app.Config.Reader.ClusterCacheMB<<20)
	if err != nil {
		return err
	}
	defer func() { _ = archive.Close() }()

	info, err := describeArchive(archive)
	if err != nil {
		return err
	}
	if infoJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	printInfo(cmd.OutOrStdout(), app.Theme, info)
	return nil
}

func describeArchive(a *zim.Archive) (*archiveInfo, error) {
	src := a.Source()
	h := a.Header()
	info := &archiveInfo{
		ID:       string(src.ID),
		Path:     src.Path,
		Title:    src.Title,
		Version:  fmt.Sprintf("%d.%d", h.MajorVersion, h.MinorVersion),
		Entries:  h.EntryCount,
		Articles: src.ArticleCount,
		Clusters: h.ClusterCount,
		Metadata: make(map[string]string),
	}

	mainPage, err := a.MainPageURL()
	if err != nil {
		return nil, fmt.Errorf("main page: %w", err)
	}
	info.MainPage = mainPage

	for _, key := range metadataKeys {
		value, err := a.Metadata(key)
		if errors.Is(err, zim.ErrEntryNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("metadata %s: %w", key, err)
		}
		info.Metadata[key] = value
		info.MetadataKeys = append(info.MetadataKeys, key)
	}
	return info, nil
}

func printInfo(w io.Writer, theme *styles.Theme, info *archiveInfo) {
	row := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(w, "%s %s\n", theme.Subtle.Render(fmt.Sprintf("%-12s", label)), value)
	}

	fmt.Fprintln(w, theme.Title.Render(info.Title))
	row("ID", info.ID)
	row("Path", info.Path)
	row("Version", info.Version)
	row("Entries", fmt.Sprint(info.Entries))
	row("Articles", fmt.Sprint(info.Articles))
	row("Clusters", fmt.Sprint(info.Clusters))
	row("Main page", info.MainPage)
	for _, key := range info.MetadataKeys {
		if key == "Title" {
			continue
		}
		row(key, styles.Truncate(info.Metadata[key], 100))
	}
}
