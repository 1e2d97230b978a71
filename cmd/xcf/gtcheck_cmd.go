package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/statgen/xcftools/gtcheck"
	"github.com/statgen/xcftools/xcf"
)

func runGtcheck(args []string) error {
	fs := flag.NewFlagSet("gtcheck", flag.ExitOnError)
	deep := fs.Bool("deep", false, "also report the first mismatching sample's dosages at each divergent site")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("gtcheck: expected exactly two companion files, got %d", fs.NArg())
	}
	path1, path2 := fs.Arg(0), fs.Arg(1)

	r := xcf.NewXcfReader()
	if _, err := r.AddFile(path1); err != nil {
		return err
	}
	if _, err := r.AddFile(path2); err != nil {
		return err
	}
	defer r.Close()

	nSamples := r.Pedigree(0).N()
	checker := gtcheck.NewChecker(*deep)
	report, err := checker.Run(r, nSamples)
	if err != nil {
		return err
	}

	for _, mm := range report.Mismatches {
		fmt.Fprintf(os.Stdout, "%s\t%d", mm.Site.Chrom, mm.Site.Pos)
		for _, d := range mm.Diffs {
			fmt.Fprintf(os.Stdout, "\t%s=%d/%d", d.Field, d.V1, d.V2)
		}
		if mm.DeepMismatch != nil {
			fmt.Fprintf(os.Stdout, "\tsample=%d:%d/%d", mm.DeepMismatch.Sample, mm.DeepMismatch.Dosage1, mm.DeepMismatch.Dosage2)
		}
		fmt.Fprintln(os.Stdout)
	}

	fmt.Fprintf(os.Stderr, "gtcheck: n_total=%d n_equal=%d n_mismatch=%d (%.2f%% match)\n",
		report.NTotal, report.NEqual, report.NMismatch, report.PercentMatch())
	return nil
}
