package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"example.com/podrom/internal/common"
	"example.com/podrom/internal/ecid"
	"example.com/podrom/internal/export"
	"example.com/podrom/internal/report"
	"example.com/podrom/internal/rombuild"
	"example.com/podrom/internal/romsum"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(ecid.ExitUsage)
	}
	var code int
	switch os.Args[1] {
	case "decode":
		code = decodeCmd(os.Args[2:])
	case "verify":
		code = verifyCmd(os.Args[2:])
	case "patch":
		code = patchCmd(os.Args[2:])
	case "undo":
		code = undoCmd(os.Args[2:])
	case "build":
		code = buildCmd(os.Args[2:])
	case "report":
		code = reportCmd(os.Args[2:])
	default:
		usage()
		code = ecid.ExitUsage
	}
	os.Exit(code)
}

func usage() {
	fmt.Printf(`podrom %s (built %s) <command> [options]

Commands:
  decode <identity-file> [--out-dir <dir>] [--max-size <bytes>] [--json <card.json>] [--pdf <card.pdf>] [--manifest <manifest.json>] [--metrics]
  verify <rom-file> [--metrics] [--progress]
  patch  <rom-file> [--audit <audit.jsonl>]
  undo   --in <patched.rom> --audit <audit.jsonl> --out <restored.rom>
  build  --config <rom.yml> [--out <rom.bin>]
  report --in <identity-file> --pdf <card.pdf> [--json <card.json>]
`, version, buildDate)
}

// parseArgs parses flags that may appear before or after a single
// positional argument.
func parseArgs(fs *flag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() == 0 {
		return "", nil
	}
	pos := fs.Arg(0)
	if err := fs.Parse(fs.Args()[1:]); err != nil {
		return "", err
	}
	if fs.NArg() > 0 {
		return "", fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}
	return pos, nil
}

func printMetrics(m *common.Metrics) {
	if m == nil {
		return
	}
	m.Stop()
	snap := m.Snapshot()
	fmt.Fprintf(stdout, "Metrics: duration=%s chunks=%d processed=%s throughput=%.2f MB/s\n",
		snap.Duration.Round(10*time.Millisecond),
		snap.Chunks,
		common.FormatBytes(snap.Bytes),
		snap.ThroughputBytesPerSecond()/1_000_000,
	)
}

func decodeCmd(args []string) int {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	outDir := fs.String("out-dir", ".", "directory for exported NN.bin chunks")
	maxSize := fs.Int("max-size", ecid.MaxIdentitySize, "maximum number of bytes to read")
	jsonOut := fs.String("json", "", "write the decoded card as JSON")
	pdfOut := fs.String("pdf", "", "write a PDF report")
	manifestOut := fs.String("manifest", "", "write a chunk manifest")
	metricsFlag := fs.Bool("metrics", false, "print decode metrics")
	in, err := parseArgs(fs, args)
	if err != nil {
		return ecid.ExitUsage
	}
	if in == "" {
		fmt.Fprintln(stderr, "required: <identity-file>")
		return ecid.ExitUsage
	}

	var metrics *common.Metrics
	if *metricsFlag {
		metrics = common.NewMetrics()
		metrics.Start()
	}
	f, err := os.Open(in)
	if err != nil {
		fmt.Fprintln(stderr, "open:", err)
		return ecid.ExitIO
	}
	buf, err := ecid.Load(f, *maxSize)
	f.Close()
	if err != nil {
		fmt.Fprintln(stderr, "read:", err)
		return ecid.ExitIO
	}

	sink := export.NewDirSink(*outDir)
	sink.Metrics = metrics
	card, err := ecid.Decode(buf, ecid.Options{Sink: sink})
	if card == nil {
		fmt.Fprintf(stdout, "%d bytes read\n", len(buf))
		fmt.Fprintln(stderr, err)
		return ecid.ExitCode(err)
	}
	report.WriteCard(stdout, card)
	code := ecid.ExitCode(err)
	if err != nil {
		fmt.Fprintln(stderr, err)
	}

	if *jsonOut != "" {
		if err := report.SaveCardJSON(card, *jsonOut); err != nil {
			fmt.Fprintln(stderr, "write json:", err)
			return ecid.ExitIO
		}
	}
	if *manifestOut != "" {
		m, err := sink.Manifest(in)
		if err != nil {
			fmt.Fprintln(stderr, "manifest:", err)
			return ecid.ExitIO
		}
		if err := export.Save(m, *manifestOut); err != nil {
			fmt.Fprintln(stderr, "write manifest:", err)
			return ecid.ExitIO
		}
	}
	if *pdfOut != "" {
		if err := savePDF(card, buf, in, *pdfOut); err != nil {
			fmt.Fprintln(stderr, "write pdf:", err)
			return ecid.ExitIO
		}
	}
	printMetrics(metrics)
	return code
}

func savePDF(card *ecid.Card, buf []byte, source, out string) error {
	info := report.CardInfo{Source: filepath.Base(source), Sha256: common.Sha256OfBytes(buf)}
	if res, err := romsum.VerifyBytes(buf); err == nil {
		info.Verify = &res
	}
	return report.SaveCardPDF(card, info, out)
}

func verifyCmd(args []string) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	metricsFlag := fs.Bool("metrics", false, "print verification throughput")
	progressFlag := fs.Bool("progress", false, "display progress updates")
	in, err := parseArgs(fs, args)
	if err != nil {
		return ecid.ExitUsage
	}
	if in == "" {
		fmt.Fprintln(stderr, "required: <rom-file>")
		return ecid.ExitUsage
	}
	f, err := os.Open(in)
	if err != nil {
		fmt.Fprintln(stderr, "open:", err)
		return ecid.ExitUsage
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		fmt.Fprintln(stderr, "stat:", err)
		return ecid.ExitUsage
	}

	var metrics *common.Metrics
	var r io.Reader = f
	if *metricsFlag || *progressFlag {
		metrics = common.NewMetrics()
		metrics.SetTotalBytes(info.Size())
		metrics.Start()
		r = metrics.Reader(f)
	}
	stopProgress := func() {}
	if *progressFlag {
		stopProgress = common.StartProgressPrinter(stderr, metrics, 500*time.Millisecond)
	}
	res, err := romsum.Verify(r, info.Size())
	stopProgress()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return ecid.ExitUsage
	}
	report.WriteVerify(stdout, res)
	if *metricsFlag {
		printMetrics(metrics)
	}
	return ecid.ExitOK
}

func patchCmd(args []string) int {
	fs := flag.NewFlagSet("patch", flag.ContinueOnError)
	audit := fs.String("audit", "", "audit log (jsonl), defaults to <rom>.audit.jsonl")
	in, err := parseArgs(fs, args)
	if err != nil {
		return ecid.ExitUsage
	}
	if in == "" {
		fmt.Fprintln(stderr, "required: <rom-file>")
		return ecid.ExitUsage
	}
	if *audit == "" {
		*audit = in + ".audit.jsonl"
	}

	res, err := romsum.PatchFile(in)
	if err != nil {
		fmt.Fprintln(stderr, "patch:", err)
		return ecid.ExitUsage
	}
	report.WritePatch(stdout, res)

	log := common.NewPatchLog(*audit)
	for _, e := range res.Edits {
		if err := log.Append(common.NewPatchEntry(e.Field, in, e.Offset, e.Before, e.After)); err != nil {
			fmt.Fprintln(stderr, "write audit:", err)
			return ecid.ExitIO
		}
	}
	fmt.Fprintf(stdout, "Audit log: %s\n", log.Path())
	return ecid.ExitOK
}

func undoCmd(args []string) int {
	fs := flag.NewFlagSet("undo", flag.ContinueOnError)
	in := fs.String("in", "", "patched ROM image")
	audit := fs.String("audit", "", "audit log (jsonl)")
	out := fs.String("out", "", "restored output file")
	if err := fs.Parse(args); err != nil {
		return ecid.ExitUsage
	}
	if *in == "" || *audit == "" || *out == "" {
		fmt.Fprintln(stderr, "required: --in, --audit, --out")
		return ecid.ExitUsage
	}

	entries, err := common.ReadPatchLog(*audit)
	if err != nil {
		fmt.Fprintln(stderr, "read audit:", err)
		return ecid.ExitIO
	}
	if len(entries) == 0 {
		fmt.Fprintln(stderr, "audit log is empty")
		return ecid.ExitUsage
	}

	patchedHash, _, err := common.Sha256OfFile(*in)
	if err != nil {
		fmt.Fprintln(stderr, "hash input:", err)
		return ecid.ExitIO
	}
	if err := common.CopyFile(*in, *out); err != nil {
		fmt.Fprintln(stderr, "copy input:", err)
		return ecid.ExitIO
	}

	f, err := os.OpenFile(*out, os.O_RDWR, 0)
	if err != nil {
		fmt.Fprintln(stderr, "open output:", err)
		return ecid.ExitIO
	}
	res, err := common.Revert(f, entries)
	if err != nil {
		f.Close()
		fmt.Fprintln(stderr, "revert:", err)
		return ecid.ExitIO
	}
	if err := f.Sync(); err != nil {
		f.Close()
		fmt.Fprintln(stderr, "sync output:", err)
		return ecid.ExitIO
	}
	f.Close()

	restoredHash, _, err := common.Sha256OfFile(*out)
	if err != nil {
		fmt.Fprintln(stderr, "hash restored:", err)
		return ecid.ExitIO
	}
	fmt.Fprintf(stdout, "Reverted %d edit(s), %d skipped, %d mismatch(es)\n", res.Applied, res.Skipped, res.Mismatches)
	fmt.Fprintf(stdout, "patched  sha256: %s\n", patchedHash)
	fmt.Fprintf(stdout, "restored sha256: %s\n", restoredHash)
	return ecid.ExitOK
}

func buildCmd(args []string) int {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	configPath := fs.String("config", "", "ROM description (yaml)")
	out := fs.String("out", "", "output image, overrides the config filename")
	if err := fs.Parse(args); err != nil {
		return ecid.ExitUsage
	}
	if *configPath == "" {
		fmt.Fprintln(stderr, "required: --config")
		return ecid.ExitUsage
	}
	cfg, err := rombuild.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, "load config:", err)
		return ecid.ExitUsage
	}
	if *out != "" {
		cfg.Filename = *out
	}
	img, err := rombuild.WriteFile(cfg)
	if err != nil {
		if errors.Is(err, rombuild.ErrCollision) {
			fmt.Fprintln(stderr, "ROM too small:", err)
		} else {
			fmt.Fprintln(stderr, "build:", err)
		}
		return ecid.ExitIO
	}
	for _, p := range img.Placements {
		fmt.Fprintf(stdout, "  &%02X %-24s %6d bytes at &%06X\n", p.OSID, p.Name, p.Size, p.Address)
	}
	fmt.Fprintf(stdout, "Wrote %s (%s, checksum &%08X)\n", cfg.Filename, common.FormatBytes(int64(len(img.Data))), img.Checksum)
	return ecid.ExitOK
}

func reportCmd(args []string) int {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	in := fs.String("in", "", "identity file")
	pdfOut := fs.String("pdf", "", "PDF output")
	jsonOut := fs.String("json", "", "JSON output")
	maxSize := fs.Int("max-size", ecid.MaxIdentitySize, "maximum number of bytes to read")
	if err := fs.Parse(args); err != nil {
		return ecid.ExitUsage
	}
	if *in == "" || *pdfOut == "" {
		fmt.Fprintln(stderr, "required: --in, --pdf")
		return ecid.ExitUsage
	}
	buf, err := ecid.LoadFile(*in, *maxSize)
	if err != nil {
		fmt.Fprintln(stderr, "read:", err)
		return ecid.ExitIO
	}
	card, err := ecid.Decode(buf, ecid.Options{})
	if card == nil {
		fmt.Fprintln(stderr, err)
		return ecid.ExitCode(err)
	}
	code := ecid.ExitCode(err)
	if *jsonOut != "" {
		if err := report.SaveCardJSON(card, *jsonOut); err != nil {
			fmt.Fprintln(stderr, "write json:", err)
			return ecid.ExitIO
		}
	}
	if err := savePDF(card, buf, *in, *pdfOut); err != nil {
		fmt.Fprintln(stderr, "write pdf:", err)
		return ecid.ExitIO
	}
	fmt.Fprintf(stdout, "Report written to %s\n", *pdfOut)
	return code
}
