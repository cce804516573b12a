package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/KarimYounus/jobbies/internal/app"
	"github.com/KarimYounus/jobbies/pkg/models"
)

var cvCmd = &cobra.Command{
	Use:   "cv",
	Short: "Manage CVs",
	Long:  "Add, list and remove the CVs you send with applications",
}

var addCVCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a CV",
	Example: `  jobbies cv add --name "Backend CV" --pdf ~/Documents/cv.pdf --image ~/Documents/cv.png
  jobbies cv add --name "Short CV" --image ./preview.jpg --notes "One page"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := getApp(cmd)
		if err != nil {
			return err
		}

		name, _ := cmd.Flags().GetString("name")
		imagePath, _ := cmd.Flags().GetString("image")
		pdfPath, _ := cmd.Flags().GetString("pdf")
		notes, _ := cmd.Flags().GetString("notes")

		if imagePath == "" && pdfPath == "" {
			return fmt.Errorf("%w: at least one of --image or --pdf is required", app.ErrInvalidArgument)
		}
		if name == "" {
			name = filepath.Base(firstNonEmpty(pdfPath, imagePath))
		}

		image, err := readUpload(imagePath)
		if err != nil {
			return err
		}
		pdf, err := readUpload(pdfPath)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		cv, err := application.CVs.CreateCVWithFiles(ctx, models.CurriculumVitae{Name: name, Notes: notes}, image, pdf)
		if err != nil {
			return fmt.Errorf("failed to store CV files: %w", err)
		}
		cv, err = application.CVs.AddCV(ctx, cv)
		if err != nil {
			return fmt.Errorf("failed to add CV: %w", err)
		}

		cmd.Printf("✓ CV added: %s (ID: %s)\n", cv.Name, shortID(cv.ID))
		return nil
	},
}

var listCVsCmd = &cobra.Command{
	Use:   "list",
	Short: "List all CVs",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := getApp(cmd)
		if err != nil {
			return err
		}

		cvs := application.CVs.GetAllCVs()
		if len(cvs) == 0 {
			cmd.Println("No CVs found. Add one with 'jobbies cv add --name NAME --pdf FILE'")
			return nil
		}

		cmd.Println(titleStyle.Render("Your CVs"))
		table := uitable.New()
		table.MaxColWidth = 40
		table.AddRow(labelStyle.Render("ID"), labelStyle.Render("NAME"), labelStyle.Render("ADDED"), labelStyle.Render("USED BY"))
		for _, cv := range cvs {
			table.AddRow(shortID(cv.ID), cv.Name, cv.Date, len(application.ApplicationsUsingCV(cv.ID)))
		}
		cmd.Println(table)
		return nil
	},
}

var showCVCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a CV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := getApp(cmd)
		if err != nil {
			return err
		}

		cv, err := resolveCV(application, args[0])
		if err != nil {
			return err
		}

		cmd.Println(titleStyle.Render(cv.Name))
		cmd.Printf("%s %s\n", labelStyle.Render("ID:"), cv.ID)
		cmd.Printf("%s %s\n", labelStyle.Render("Added:"), cv.Date)
		if cv.PDFPath != "" {
			cmd.Printf("%s %s\n", labelStyle.Render("PDF:"), cv.PDFPath)
		}
		if cv.ImagePreviewPath != "" {
			cmd.Printf("%s %s\n", labelStyle.Render("Preview:"), cv.ImagePreviewPath)
		}
		if cv.Notes != "" {
			cmd.Printf("%s %s\n", labelStyle.Render("Notes:"), cv.Notes)
		}

		if uri, _ := cmd.Flags().GetBool("data-uri"); uri {
			data, ok := application.CVs.ImageURI(cmd.Context(), cv)
			if !ok {
				cmd.Println(warnStyle.Render("Preview image unavailable"))
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), data)
			}
		}

		used := application.ApplicationsUsingCV(cv.ID)
		if len(used) > 0 {
			cmd.Printf("\n%s\n", labelStyle.Render("Used by"))
			for _, a := range used {
				cmd.Printf("  %s %s at %s\n", shortID(a.ID), a.Position, a.Company)
			}
		}
		return nil
	},
}

var deleteCVCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a CV",
	Long: `Delete a CV. A CV that applications still reference is kept unless
--force is given, in which case those applications keep a dangling reference.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := getApp(cmd)
		if err != nil {
			return err
		}

		cv, err := resolveCV(application, args[0])
		if err != nil {
			return err
		}
		force, _ := cmd.Flags().GetBool("force")

		if !confirm(cmd, application, fmt.Sprintf("Delete CV %s?", cv.Name)) {
			cmd.Println("Cancelled.")
			return nil
		}

		err = application.DeleteCV(cmd.Context(), cv.ID, force)
		if errors.Is(err, app.ErrCVInUse) {
			return fmt.Errorf("%w (use --force to delete anyway)", err)
		}
		if err != nil {
			return fmt.Errorf("failed to delete CV: %w", err)
		}
		cmd.Printf("✓ CV deleted: %s\n", cv.Name)
		return nil
	},
}

// readUpload reads a file and sniffs its content type. An empty path yields nil.
func readUpload(path string) (*models.FileUpload, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return &models.FileUpload{
		Name:        filepath.Base(path),
		ContentType: mimetype.Detect(data).String(),
		Data:        data,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func init() {
	rootCmd.AddCommand(cvCmd)
	cvCmd.AddCommand(addCVCmd)
	cvCmd.AddCommand(listCVsCmd)
	cvCmd.AddCommand(showCVCmd)
	cvCmd.AddCommand(deleteCVCmd)

	addCVCmd.Flags().String("name", "", "Display name (defaults to the file name)")
	addCVCmd.Flags().String("image", "", "Preview image file")
	addCVCmd.Flags().String("pdf", "", "PDF file")
	addCVCmd.Flags().String("notes", "", "Notes")

	showCVCmd.Flags().Bool("data-uri", false, "Print the preview image as a data URI")

	deleteCVCmd.Flags().Bool("force", false, "Delete even if applications reference the CV")
	deleteCVCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
}
