// parcel encodes and decodes Temporal payloads from the command line.
//
// Usage:
//
//	parcel encode [--keys FILE] [--format NAME] [--whole] [--compress] < value.json > payload.json
//	parcel decode [--keys FILE] < payload.json > value.json
//	parcel keys --keys FILE
//
// encode reads a JSON value and writes the resulting payload as protojson.
// With the default format, sealed, the value is encrypted with the current
// key from the keyring file. decode reverses any payload this tool writes.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"
	"github.com/zoobzio/parcel"
	"github.com/zoobzio/parcel/bson"
	"github.com/zoobzio/parcel/cbor"
	"github.com/zoobzio/parcel/msgpack"
	"github.com/zoobzio/parcel/yaml"
	"github.com/zoobzio/parcel/zstd"
	commonpb "go.temporal.io/api/common/v1"
	"google.golang.org/protobuf/encoding/protojson"
)

var errUsage = errors.New("usage")

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		printUsage(stderr)
		return errUsage
	}

	switch args[0] {
	case "encode":
		return runEncode(args[1:], stdin, stdout, stderr)
	case "decode":
		return runDecode(args[1:], stdin, stdout, stderr)
	case "keys":
		return runKeys(args[1:], stdout, stderr)
	case "-h", "--help", "help":
		printUsage(stdout)
		return nil
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", args[0])
		printUsage(stderr)
		return errUsage
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `Usage: parcel <command> [flags]

Commands:
  encode   read a JSON value from stdin, write a protojson payload
  decode   read a protojson payload from stdin, write the JSON value
  keys     list keyring ids and fingerprints in decryption order

Run "parcel <command> --help" for command flags.
`)
}

// common holds flags shared by every subcommand.
type common struct {
	keys    string
	verbose bool
}

func (c *common) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.keys, "keys", os.Getenv("PARCEL_KEYS"), "keyring YAML file (default $PARCEL_KEYS)")
	fs.BoolVarP(&c.verbose, "verbose", "v", false, "log progress to stderr")
}

func (c *common) logger(stderr io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
}

func (c *common) keyring() (*parcel.Keyring, error) {
	if c.keys == "" {
		return nil, errors.New("--keys is required")
	}
	return parcel.LoadKeyring(c.keys)
}

// parseFlags parses args, treating --help as a successful no-op.
func parseFlags(fs *pflag.FlagSet, args []string) (bool, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return false, nil
		}
		return false, err
	}
	if rest := fs.Args(); len(rest) > 0 {
		return false, fmt.Errorf("unexpected argument: %s", rest[0])
	}
	return true, nil
}

// formatCodec returns the permissive codec selected by --format. Every
// format must carry an arbitrary JSON value, which rules out XML.
func formatCodec(name string, c *common, whole bool) (parcel.Codec, error) {
	switch name {
	case "sealed":
		ring, err := c.keyring()
		if err != nil {
			return nil, err
		}
		var opts []parcel.SealOption
		if whole {
			opts = append(opts, parcel.WithWholeDocument())
		}
		return parcel.SealedJSON(ring, opts...)
	case "json":
		return parcel.JSON(), nil
	case "yaml":
		return yaml.New(), nil
	case "msgpack":
		return msgpack.New(), nil
	case "bson":
		return bson.New(), nil
	case "cbor":
		return cbor.New(), nil
	default:
		return nil, fmt.Errorf("unknown format %q", name)
	}
}

func runEncode(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var (
		c        common
		format   string
		whole    bool
		compress bool
	)
	fs := pflag.NewFlagSet("encode", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	c.addFlags(fs)
	fs.StringVarP(&format, "format", "f", "sealed", "payload format: sealed, json, yaml, msgpack, bson, cbor")
	fs.BoolVar(&whole, "whole", false, "with --format sealed, encrypt the whole document")
	fs.BoolVar(&compress, "compress", false, "zstd-compress the encoded payload")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}
	log := c.logger(stderr)

	codec, err := formatCodec(format, &c, whole)
	if err != nil {
		return err
	}
	if compress {
		codec = zstd.Wrap(codec)
	}
	chain, err := parcel.NewChain(parcel.Null(), parcel.Bytes(), parcel.ProtoJSON(), codec)
	if err != nil {
		return err
	}

	var value any
	if err := json.NewDecoder(stdin).Decode(&value); err != nil {
		return fmt.Errorf("read value: %w", err)
	}

	pb, err := parcel.NewConverter(chain).ToPayload(value)
	if err != nil {
		return err
	}
	log.Info("encoded", "encoding", string(pb.GetMetadata()[parcel.MetadataEncoding]), "size", len(pb.GetData()))

	return writePayload(stdout, pb)
}

func runDecode(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var c common
	fs := pflag.NewFlagSet("decode", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	c.addFlags(fs)
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}
	log := c.logger(stderr)

	// json/plain is served by the sealed codec when a keyring is given.
	plain := parcel.JSON()
	if c.keys != "" {
		sealed, err := formatCodec("sealed", &c, false)
		if err != nil {
			return err
		}
		plain = sealed
	}
	codecs := []parcel.Codec{
		parcel.Null(), parcel.Bytes(), parcel.ProtoJSON(), parcel.Proto(),
		yaml.New(), msgpack.New(), bson.New(), cbor.New(), plain,
	}
	inner, err := parcel.NewChain(codecs...)
	if err != nil {
		return err
	}
	chain, err := parcel.NewChain(append(codecs, zstd.Wrap(inner))...)
	if err != nil {
		return err
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return fmt.Errorf("read payload: %w", err)
	}
	pb := &commonpb.Payload{}
	if err := protojson.Unmarshal(data, pb); err != nil {
		return fmt.Errorf("parse payload: %w", err)
	}

	var value any
	if err := parcel.NewConverter(chain).FromPayload(pb, &value); err != nil {
		var exhausted *parcel.DecryptionExhaustedError
		if errors.As(err, &exhausted) {
			log.Warn("no key could decrypt payload", "key_id", exhausted.KeyID, "attempts", exhausted.Attempts)
		}
		return err
	}
	log.Info("decoded", "encoding", string(pb.GetMetadata()[parcel.MetadataEncoding]))

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func runKeys(args []string, stdout, stderr io.Writer) error {
	var c common
	fs := pflag.NewFlagSet("keys", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	c.addFlags(fs)
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}

	ring, err := c.keyring()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "PRIORITY\tID\tROLE\tFINGERPRINT\n")
	for i, k := range ring.Candidates() {
		role := "historical"
		if i == 0 {
			role = "current"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, k.ID(), role, k.Fingerprint())
	}
	return tw.Flush()
}

func writePayload(w io.Writer, pb *commonpb.Payload) error {
	out, err := protojson.MarshalOptions{Multiline: true}.Marshal(pb)
	if err != nil {
		return err
	}
	if _, err := w.Write(out); err != nil {
		return err
	}
	_, err = fmt.Fprintln(w)
	return err
}
