package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"certgen/internal"
	"certgen/internal/di"
	"certgen/internal/models"
	"certgen/internal/services"
	"certgen/internal/structures"
)

// errReported marks failures whose details were already printed.
var errReported = errors.New("failed")

var flags structures.CliFlags

var rootCmd = &cobra.Command{
	Use:           "certgen",
	Short:         "Generate and verify tamper-evident PDF certificates",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Issue a single certificate",
	RunE:  runCreate,
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Issue certificates for every recipient in a JSON file",
	RunE:  runBatch,
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a certificate against the record store",
	RunE:  runVerify,
}

var verifyFileCmd = &cobra.Command{
	Use:   "verify-file",
	Short: "Verify a rendered certificate by its embedded metadata",
	RunE:  runVerifyFile,
}

var processDeviceCmd = &cobra.Command{
	Use:   "process-device",
	Short: "Store device cleanup records from a JSON file",
	RunE:  runProcessDevice,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every entry of the record store",
	RunE:  runList,
}

var (
	name      string
	course    string
	date      string
	issuer    string
	output    string
	inputPath string
	certID    string
	token     string
	filePath  string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&flags.ConfigPath, "config", "c", "", "Config file path (YAML)")
	rootCmd.PersistentFlags().BoolVarP(&flags.DebugMode, "debug", "d", false, "Enable debug logging")

	createCmd.Flags().StringVar(&name, "name", "", "Recipient name")
	createCmd.Flags().StringVar(&course, "course", "", "Course name")
	createCmd.Flags().StringVar(&date, "date", "", "Issue date (defaults to today)")
	createCmd.Flags().StringVar(&issuer, "issuer", "", "Issuer (defaults to the template issuer)")
	createCmd.Flags().StringVar(&output, "output", "", "Output file name inside the output directory")
	createCmd.Flags().StringVarP(&inputPath, "input", "i", "", "user_data.json with user and device sections")
	// the input file carries every field
	for _, f := range []string{"name", "course", "date", "issuer", "output"} {
		createCmd.MarkFlagsMutuallyExclusive("input", f)
	}
	createCmd.MarkFlagsOneRequired("input", "name")

	batchCmd.Flags().StringVarP(&inputPath, "input", "i", "", "JSON array of recipients (required)")
	batchCmd.MarkFlagRequired("input")

	verifyCmd.Flags().StringVar(&certID, "cert-id", "", "Certificate ID (required)")
	verifyCmd.Flags().StringVar(&name, "name", "", "Claimed recipient name (required)")
	verifyCmd.Flags().StringVar(&course, "course", "", "Claimed course name")
	verifyCmd.Flags().StringVar(&token, "token", "", "Verification token printed at creation")
	verifyCmd.MarkFlagRequired("cert-id")
	verifyCmd.MarkFlagRequired("name")

	verifyFileCmd.Flags().StringVarP(&filePath, "file", "f", "", "Certificate PDF (required)")
	verifyFileCmd.Flags().StringVar(&token, "token", "", "Verification token printed at creation")
	verifyFileCmd.MarkFlagRequired("file")

	processDeviceCmd.Flags().StringVarP(&inputPath, "input", "i", "", "Device cleanup JSON, one object or an array (required)")
	processDeviceCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(createCmd, batchCmd, verifyCmd, verifyFileCmd, processDeviceCmd, listCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func initApp() (*internal.App, error) {
	app, err := di.InitApp(&flags)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	return app, nil
}

func runCreate(cmd *cobra.Command, _ []string) error {
	req := &models.CertificateRequest{
		RecipientName: name,
		CourseName:    course,
		IssueDate:     date,
		Issuer:        issuer,
		Output:        output,
	}
	if inputPath != "" {
		var err error
		if req, err = services.ReadCreateInput(inputPath); err != nil {
			return err
		}
	}

	app, err := initApp()
	if err != nil {
		return err
	}
	defer app.Close()

	issued, err := app.Certificates.Issue(cmd.Context(), req)
	if issued != nil {
		printIssued(cmd.OutOrStdout(), issued)
	}
	return err
}

func runBatch(cmd *cobra.Command, _ []string) error {
	entries, err := services.ReadInputEntries(inputPath)
	if err != nil {
		return err
	}

	app, err := initApp()
	if err != nil {
		return err
	}
	defer app.Close()

	report := app.Certificates.IssueBatch(cmd.Context(), entries)
	printBatch(cmd.OutOrStdout(), report, true)
	if report.Failed() > 0 {
		return errReported
	}
	return nil
}

func runVerify(cmd *cobra.Command, _ []string) error {
	app, err := initApp()
	if err != nil {
		return err
	}
	defer app.Close()

	res, err := app.Verifier.Verify(cmd.Context(), certID, name, course, token)
	if err != nil {
		return err
	}
	return reportVerdict(cmd, res)
}

func runVerifyFile(cmd *cobra.Command, _ []string) error {
	app, err := initApp()
	if err != nil {
		return err
	}
	defer app.Close()

	res, err := app.Verifier.VerifyArtifact(cmd.Context(), filePath, token)
	if err != nil {
		return err
	}
	return reportVerdict(cmd, res)
}

func runProcessDevice(cmd *cobra.Command, _ []string) error {
	entries, err := services.ReadInputEntries(inputPath)
	if err != nil {
		return err
	}

	app, err := initApp()
	if err != nil {
		return err
	}
	defer app.Close()

	report := app.Devices.Process(cmd.Context(), entries)
	printBatch(cmd.OutOrStdout(), report, false)
	if report.Failed() > 0 {
		return errReported
	}
	return nil
}

func runList(cmd *cobra.Command, _ []string) error {
	app, err := initApp()
	if err != nil {
		return err
	}
	defer app.Close()

	records, err := app.Store.ListAll(cmd.Context())
	if err != nil {
		return err
	}
	printRecords(cmd.OutOrStdout(), records)
	return nil
}

func reportVerdict(cmd *cobra.Command, res *models.VerificationResult) error {
	printVerdict(cmd.OutOrStdout(), res)
	if !res.Valid() {
		return errReported
	}
	return nil
}
