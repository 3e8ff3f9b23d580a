package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"certgen/internal/models"
)

func printIssued(w io.Writer, issued *models.IssuedCertificate) {
	rec := issued.Record
	fmt.Fprintf(w, "Certificate issued\n")
	fmt.Fprintf(w, "  ID        : %s\n", rec.CertificateID)
	fmt.Fprintf(w, "  Recipient : %s\n", rec.RecipientName)
	if rec.CourseName != "" {
		fmt.Fprintf(w, "  Course    : %s\n", rec.CourseName)
	}
	fmt.Fprintf(w, "  Date      : %s\n", rec.IssueDate)
	fmt.Fprintf(w, "  Issuer    : %s\n", rec.Issuer)
	if issued.FilePath != "" {
		fmt.Fprintf(w, "  File      : %s\n", issued.FilePath)
	}
	if d := rec.DeviceInfo; d != nil {
		fmt.Fprintf(w, "  Device    : %s (%s, %s, %s)\n", d.DeviceID, d.OSName(), d.ActionType, d.SizeRemoved)
	}
	fmt.Fprintf(w, "\nVerification token (shown once, it is not stored):\n  %s\n", issued.Token)
}

func printBatch(w io.Writer, report *models.BatchReport, withTokens bool) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if withTokens {
		fmt.Fprintln(tw, "#\tRECIPIENT\tCERTIFICATE\tTOKEN\tSTATUS")
	} else {
		fmt.Fprintln(tw, "#\tDEVICE\tSTATUS")
	}
	for _, it := range report.Items {
		status := "ok"
		if !it.Succeeded() {
			status = it.Err.Error()
		}
		if withTokens {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", it.Index+1, it.Label, it.CertificateID, it.Token, status)
		} else {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", it.Index+1, it.Label, status)
		}
	}
	tw.Flush()
	fmt.Fprintf(w, "\nRun %s: %d succeeded, %d failed\n", report.RunID, report.Succeeded(), report.Failed())
}

func printVerdict(w io.Writer, res *models.VerificationResult) {
	if !res.Valid() {
		fmt.Fprintf(w, "%s: %s\n", res.Verdict, res.Reason)
		if res.CertificateID != "" {
			fmt.Fprintf(w, "  ID        : %s\n", res.CertificateID)
		}
		return
	}
	fmt.Fprintf(w, "%s\n", res.Verdict)
	fmt.Fprintf(w, "  ID        : %s\n", res.CertificateID)
	fmt.Fprintf(w, "  Recipient : %s\n", res.RecipientName)
	fmt.Fprintf(w, "  Course    : %s\n", res.CourseName)
	fmt.Fprintf(w, "  Date      : %s\n", res.IssueDate)
	fmt.Fprintf(w, "  Issuer    : %s\n", res.Issuer)
}

func printRecords(w io.Writer, records []*models.Record) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tID\tNAME\tDETAIL\tDATE")
	for _, r := range records {
		switch {
		case r.IsCertificate():
			c := r.Certificate
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Type, c.CertificateID, c.RecipientName, c.CourseName, c.IssueDate)
		case r.IsDeviceCleanup():
			d := r.DeviceCleanup
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d files, %s\t%s\n", r.Type, d.DeviceID, d.OS, d.FilesDeletedCount, d.SizeRemoved, d.Timestamp)
		default:
			fmt.Fprintf(tw, "%s\t-\t-\t-\t-\n", unknownType(r.Type))
		}
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d entries\n", len(records))
}

func unknownType(t models.RecordType) string {
	if t == "" {
		return "unknown"
	}
	return string(t)
}
