package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/templar-app/templar/internal/backend"
	"github.com/templar-app/templar/internal/forms"
	"github.com/templar-app/templar/internal/viewmodel"
)

var (
	uploadType   string
	uploadName   string
	uploadFields []string
	updateName   string
	updateFields []string
	listQuery    string
	listSort     string
	deleteYes    bool
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Template management commands",
}

var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List templates",
	RunE:  runTemplateList,
}

var templateUploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a template file",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplateUpload,
}

var templateUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a template's name or fields",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplateUpdate,
}

var templateDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a template",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplateDelete,
}

var templateExtractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Extract placeholder field names from a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplateExtract,
}

func init() {
	templateListCmd.Flags().StringVar(&listQuery, "search", "", "Filter by display name substring")
	templateListCmd.Flags().StringVar(&listSort, "sort", "date", "Sort order: date or name")

	templateUploadCmd.Flags().StringVar(&uploadType, "type", backend.TypeContract, "Template type: contract, specification or addendum")
	templateUploadCmd.Flags().StringVar(&uploadName, "name", "", "Display name (required)")
	templateUploadCmd.Flags().StringSliceVar(&uploadFields, "field", nil, "Dynamic field name (repeatable, comma lists allowed)")
	templateUploadCmd.MarkFlagRequired("name")

	templateUpdateCmd.Flags().StringVar(&updateName, "name", "", "New display name")
	templateUpdateCmd.Flags().StringSliceVar(&updateFields, "field", nil, "Replacement field list (repeatable)")

	templateDeleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Skip the confirmation prompt")

	templateCmd.AddCommand(
		templateListCmd,
		templateUploadCmd,
		templateUpdateCmd,
		templateDeleteCmd,
		templateExtractCmd,
	)
	rootCmd.AddCommand(templateCmd)
}

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout+time.Second)
}

func runTemplateList(cmd *cobra.Command, args []string) error {
	ctx, cancel := requestContext()
	defer cancel()

	templates, err := newClient().ListTemplates(ctx)
	if err != nil {
		return fmt.Errorf("%s", backend.UserMessage(err))
	}

	templates = viewmodel.Derive(templates, listQuery, viewmodel.ParseSortKey(listSort))
	if len(templates) == 0 {
		fmt.Println("No templates found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tFIELDS\tCREATED")
	for _, t := range templates {
		created := ""
		if !t.CreatedAt.IsZero() {
			created = t.CreatedAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			t.ID, t.DisplayName, t.TemplateType, strings.Join(t.Fields, ","), created)
	}
	return w.Flush()
}

func runTemplateUpload(cmd *cobra.Command, args []string) error {
	path := args[0]
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}

	sniff := make([]byte, 512)
	n, _ := f.Read(sniff)
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}

	form := forms.NewUploadForm(newClient(), &printNotifier{})
	form.SetFile(&forms.FileRef{
		Name:    filepath.Base(path),
		Size:    info.Size(),
		MIME:    forms.DetectMIME(path, sniff[:n]),
		Content: f,
	})
	form.SetTemplateType(uploadType)
	form.SetDisplayName(uploadName)
	for _, field := range uploadFields {
		form.AddField(field)
	}

	ctx, cancel := requestContext()
	defer cancel()
	if err := form.Submit(ctx); err != nil {
		return fmt.Errorf("upload failed")
	}
	return nil
}

func runTemplateUpdate(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid template id %q", args[0])
	}

	var upd backend.TemplateUpdate
	if cmd.Flags().Changed("name") {
		upd.DisplayName = &updateName
	}
	if cmd.Flags().Changed("field") {
		fields := forms.NormalizeFields(updateFields)
		upd.Fields = &fields
	}
	if upd.DisplayName == nil && upd.Fields == nil {
		return fmt.Errorf("nothing to update: pass --name and/or --field")
	}

	ctx, cancel := requestContext()
	defer cancel()
	msg, err := newClient().UpdateTemplate(ctx, id, upd)
	if err != nil {
		return fmt.Errorf("%s", backend.UserMessage(err))
	}
	if msg == "" {
		msg = "Template updated"
	}
	fmt.Println(msg)
	return nil
}

func runTemplateDelete(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid template id %q", args[0])
	}

	if !deleteYes {
		fmt.Printf("Delete template %d? [y/N]: ", id)
		var answer string
		fmt.Scanln(&answer)
		if !strings.EqualFold(strings.TrimSpace(answer), "y") {
			fmt.Println("Aborted")
			return nil
		}
	}

	ctx, cancel := requestContext()
	defer cancel()
	if err := newClient().DeleteTemplate(ctx, id); err != nil {
		return fmt.Errorf("%s", backend.UserMessage(err))
	}
	fmt.Println("Template deleted")
	return nil
}

func runTemplateExtract(cmd *cobra.Command, args []string) error {
	path := args[0]
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	ctx, cancel := requestContext()
	defer cancel()
	fields, err := newClient().ExtractFields(ctx, filepath.Base(path), f)
	if err != nil {
		return fmt.Errorf("%s", backend.UserMessage(err))
	}

	if len(fields) == 0 {
		fmt.Println("No fields found")
		return nil
	}
	for _, field := range fields {
		fmt.Println(field)
	}
	return nil
}

// printNotifier writes form notifications to the terminal.
type printNotifier struct{}

func (printNotifier) Success(msg string) { fmt.Println(msg) }
func (printNotifier) Error(msg string)   { fmt.Fprintln(os.Stderr, msg) }
