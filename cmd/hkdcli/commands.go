package main

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/davecgh/go-spew/spew"
	"github.com/lightningnetwork/hkd32/hdkey"
	"github.com/lightningnetwork/hkd32/hdpath"
	"github.com/lightningnetwork/hkd32/hkd32"
	"github.com/lightningnetwork/hkd32/keychain"
	"github.com/lightningnetwork/hkd32/keymaterial"
	"github.com/lightningnetwork/hkd32/mnemonic"
	"github.com/tv42/zbase32"
	"github.com/urfave/cli"
	"golang.org/x/term"
)

// signedMsgPrefix is a special prefix that we'll prepend to any messages we
// sign/verify. We do this to ensure that we don't accidentally sign a sighash,
// or other sensitive material. By prepending this fragment, we bind message
// signing to our particular context.
var signedMsgPrefix = []byte("Lightning Signed Message:")

var (
	mnemonicFlag = cli.StringFlag{
		Name: "mnemonic",
		Usage: "the 24 word mnemonic, read from the terminal or " +
			"stdin if not set",
	}
	passphraseFlag = cli.StringFlag{
		Name: "passphrase",
		Usage: "the optional mnemonic passphrase, prompted for " +
			"on a terminal if not set",
	}
)

// stdin is the reader secrets are read from when the input is not a
// terminal.
var stdin = bufio.NewReader(os.Stdin)

// actionDecorator is used to add additional information and error handling
// to command actions.
func actionDecorator(f func(*cli.Context) error) func(*cli.Context) error {
	return func(c *cli.Context) error {
		if err := f(c); err != nil {
			return fmt.Errorf("%s: %w", c.Command.Name, err)
		}

		return nil
	}
}

// printJSON writes v to w as indented JSON.
func printJSON(w io.Writer, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("unable to encode output: %w", err)
	}

	var out bytes.Buffer
	if err := json.Indent(&out, b, "", "\t"); err != nil {
		return err
	}
	out.WriteString("\n")

	_, err = out.WriteTo(w)

	return err
}

// readSecret returns the value of the named flag if it was set. Otherwise
// the secret is read without echo from the terminal, or as a single line
// from stdin. Optional secrets are never read from a non-terminal stdin.
func readSecret(ctx *cli.Context, flag, prompt string,
	optional bool) (string, error) {

	if ctx.IsSet(flag) {
		return ctx.String(flag), nil
	}

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprintf(os.Stderr, "%s: ", prompt)
		secret, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}

		return string(secret), nil
	}

	if optional {
		return "", nil
	}

	line, err := stdin.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("unable to read %s: %w", flag, err)
	}

	return strings.TrimSpace(line), nil
}

// readMnemonic reads and checks the mnemonic.
func readMnemonic(ctx *cli.Context) (*mnemonic.Mnemonic, error) {
	phrase, err := readSecret(ctx, mnemonicFlag.Name, "Input mnemonic",
		false)
	if err != nil {
		return nil, err
	}

	return mnemonic.ParsePhrase(phrase)
}

// readSeed reads a mnemonic and its passphrase and stretches them into the
// BIP32 seed.
func readSeed(ctx *cli.Context) (*keymaterial.Seed, error) {
	m, err := readMnemonic(ctx)
	if err != nil {
		return nil, err
	}
	defer m.Zero()

	passphrase, err := readSecret(
		ctx, passphraseFlag.Name, "Input mnemonic passphrase", true,
	)
	if err != nil {
		return nil, err
	}

	return m.ToSeed(passphrase), nil
}

// readMaster returns the extended key given with --xprv, or the master node
// of the mnemonic seed on the configured network.
func readMaster(ctx *cli.Context) (*hdkey.ExtendedKey, error) {
	if ctx.IsSet("xprv") {
		return hdkey.Parse(ctx.String("xprv"))
	}

	seed, err := readSeed(ctx)
	if err != nil {
		return nil, err
	}
	defer seed.Zero()

	return hdkey.NewMaster(seed, getConfig(ctx).ActiveNetParams)
}

// pathArg parses the first argument as a BIP32 path, falling back to the
// configured default path.
func pathArg(ctx *cli.Context) (hdpath.Path, error) {
	if ctx.NArg() == 0 {
		return getConfig(ctx).ActivePath, nil
	}

	return hdpath.Parse(ctx.Args().First())
}

// keyInfo is the JSON description of an extended key.
type keyInfo struct {
	Network           string `json:"network"`
	Private           bool   `json:"private"`
	Depth             uint8  `json:"depth"`
	ChildNumber       string `json:"child_number"`
	ParentFingerprint string `json:"parent_fingerprint"`
	Fingerprint       string `json:"fingerprint"`
	ChainCode         string `json:"chain_code"`
	PublicKey         string `json:"public_key"`
	ExtendedPublicKey string `json:"xpub"`
	ExtendedPrivKey   string `json:"xprv,omitempty"`
}

// newKeyInfo describes k. The private serialization is only included when
// withPrivate is set.
func newKeyInfo(k *hdkey.ExtendedKey, withPrivate bool) *keyInfo {
	parentFP := k.ParentFingerprint()
	fp := k.Fingerprint()
	chainCode := k.ChainCode()

	info := &keyInfo{
		Network:           k.Net().Name,
		Private:           k.IsPrivate(),
		Depth:             k.Depth(),
		ChildNumber:       k.ChildNumber().String(),
		ParentFingerprint: hex.EncodeToString(parentFP[:]),
		Fingerprint:       hex.EncodeToString(fp[:]),
		ChainCode:         hex.EncodeToString(chainCode[:]),
		PublicKey:         hex.EncodeToString(k.PublicKeyBytes()),
		ExtendedPublicKey: k.Neuter().Serialize(),
	}
	if withPrivate && k.IsPrivate() {
		info.ExtendedPrivKey = k.Serialize()
	}

	return info
}

// publicInfo is a log closure dumping the public part of info.
func publicInfo(info *keyInfo) logClosure {
	return newLogClosure(func() string {
		pub := *info
		pub.ExtendedPrivKey = ""

		return spew.Sdump(pub)
	})
}

var genSeedCommand = cli.Command{
	Name:     "genseed",
	Category: "Mnemonic",
	Usage:    "Generate a new 24 word mnemonic.",
	Description: `
	Generates a new mnemonic from 32 bytes of entropy. Without --entropy
	the entropy is read from the operating system's secure random source.
	`,
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "entropy",
			Usage: "optional hex encoded 32 byte entropy",
		},
	},
	Action: actionDecorator(genSeed),
}

func genSeed(ctx *cli.Context) error {
	var (
		m   *mnemonic.Mnemonic
		err error
	)
	if ctx.IsSet("entropy") {
		raw, decodeErr := hex.DecodeString(ctx.String("entropy"))
		if decodeErr != nil {
			return fmt.Errorf("invalid entropy: %w", decodeErr)
		}

		entropy, keyErr := keymaterial.FromBytes(raw)
		if keyErr != nil {
			return keyErr
		}
		defer entropy.Zero()

		m = mnemonic.FromEntropy(entropy)
	} else {
		m, err = mnemonic.Random(nil)
		if err != nil {
			return err
		}
	}
	defer m.Zero()

	return printJSON(ctx.App.Writer, struct {
		Mnemonic []string `json:"mnemonic"`
	}{
		Mnemonic: m.Words(),
	})
}

var seedCommand = cli.Command{
	Name:     "seed",
	Category: "Mnemonic",
	Usage:    "Stretch a mnemonic into its BIP32 seed and master key.",
	Flags:    []cli.Flag{mnemonicFlag, passphraseFlag},
	Action:   actionDecorator(seed),
}

func seed(ctx *cli.Context) error {
	s, err := readSeed(ctx)
	if err != nil {
		return err
	}
	defer s.Zero()

	master, err := hdkey.NewMaster(s, getConfig(ctx).ActiveNetParams)
	if err != nil {
		return err
	}
	defer master.Zero()

	info := newKeyInfo(master, true)
	log.Debugf("Master key: %v", publicInfo(info))

	seedHex := hex.EncodeToString(s.Expose())
	runtime.KeepAlive(s)

	return printJSON(ctx.App.Writer, struct {
		Seed string `json:"seed"`
		*keyInfo
	}{
		Seed:    seedHex,
		keyInfo: info,
	})
}

var deriveCommand = cli.Command{
	Name:      "derive",
	Category:  "Keys",
	Usage:     "Derive a child key along a BIP32 path.",
	ArgsUsage: "[path]",
	Description: `
	Derives the key at path, e.g. m/44'/0'/0'/0/0, below the key given with
	--xprv or the master node of the mnemonic. A public key given with --xprv
	only supports normal steps. Without a path the configured derivepath is
	used.

	With --symmetric the symmetric hierarchy of the mnemonic seed is used
	instead. Symmetric paths must be hardened only and the derived key is
	printed bech32 encoded.
	`,
	Flags: []cli.Flag{
		mnemonicFlag,
		passphraseFlag,
		cli.StringFlag{
			Name:  "xprv",
			Usage: "the serialized extended key to derive from",
		},
		cli.BoolFlag{
			Name:  "neuter",
			Usage: "only print the public extended key",
		},
		cli.BoolFlag{
			Name:  "symmetric",
			Usage: "derive in the symmetric key hierarchy",
		},
	},
	Action: actionDecorator(derive),
}

func derive(ctx *cli.Context) error {
	path, err := pathArg(ctx)
	if err != nil {
		return err
	}

	if ctx.Bool("symmetric") {
		return deriveSymmetric(ctx, path)
	}

	master, err := readMaster(ctx)
	if err != nil {
		return err
	}
	defer master.Zero()

	child, err := master.DerivePath(path)
	if err != nil {
		return err
	}
	defer child.Zero()

	info := newKeyInfo(child, !ctx.Bool("neuter"))
	log.Debugf("Derived %v: %v", path, publicInfo(info))

	return printJSON(ctx.App.Writer, struct {
		Path string `json:"path"`
		*keyInfo
	}{
		Path:    path.String(),
		keyInfo: info,
	})
}

func deriveSymmetric(ctx *cli.Context, path hdpath.Path) error {
	if ctx.IsSet("xprv") {
		return fmt.Errorf("--xprv cannot be used with --symmetric")
	}

	s, err := readSeed(ctx)
	if err != nil {
		return err
	}
	defer s.Zero()

	master := hdkey.NewSymmetricMaster(s)
	defer master.Zero()

	child, err := master.DerivePath(path)
	if err != nil {
		return err
	}
	defer child.Zero()

	key := child.Key()
	defer key.Zero()

	encoded, err := key.ToBech32(getConfig(ctx).Bech32HRP)
	if err != nil {
		return err
	}

	chainCode := child.ChainCode()

	return printJSON(ctx.App.Writer, struct {
		Path      string `json:"path"`
		Key       string `json:"key"`
		ChainCode string `json:"chain_code"`
	}{
		Path:      path.String(),
		Key:       encoded,
		ChainCode: hex.EncodeToString(chainCode[:]),
	})
}

var neuterCommand = cli.Command{
	Name:      "neuter",
	Category:  "Keys",
	Usage:     "Convert an extended private key to its public key.",
	ArgsUsage: "xprv",
	Action:    actionDecorator(neuter),
}

func neuter(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.ShowCommandHelp(ctx, "neuter")
	}

	key, err := hdkey.Parse(ctx.Args().First())
	if err != nil {
		return err
	}
	defer key.Zero()

	return printJSON(ctx.App.Writer, struct {
		ExtendedPublicKey string `json:"xpub"`
	}{
		ExtendedPublicKey: key.Neuter().Serialize(),
	})
}

var inspectCommand = cli.Command{
	Name:      "inspect",
	Category:  "Keys",
	Usage:     "Print the metadata of a serialized extended key.",
	ArgsUsage: "key",
	Action:    actionDecorator(inspect),
}

func inspect(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.ShowCommandHelp(ctx, "inspect")
	}

	key, err := hdkey.Parse(ctx.Args().First())
	if err != nil {
		return err
	}
	defer key.Zero()

	return printJSON(ctx.App.Writer, newKeyInfo(key, false))
}

var hkdCommand = cli.Command{
	Name:      "hkd",
	Category:  "Keys",
	Usage:     "Derive a symmetric subkey along a byte string path.",
	ArgsUsage: "path",
	Description: `
	Derives the subkey at path, e.g. /app/v1, below the bech32 encoded key
	given with --key. Without --key the root is the mnemonic's entropy, or
	with --use_seed the BIP32 seed of the mnemonic and passphrase.
	`,
	Flags: []cli.Flag{
		mnemonicFlag,
		passphraseFlag,
		cli.StringFlag{
			Name:  "key",
			Usage: "the bech32 encoded root key",
		},
		cli.BoolFlag{
			Name:  "use_seed",
			Usage: "use the mnemonic seed instead of its entropy",
		},
	},
	Action: actionDecorator(hkd),
}

func hkd(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.ShowCommandHelp(ctx, "hkd")
	}

	path, err := hkd32.ParsePath(ctx.Args().First())
	if err != nil {
		return err
	}

	var subkey *keymaterial.KeyMaterial
	switch {
	case ctx.IsSet("key"):
		_, root, err := keymaterial.FromBech32(ctx.String("key"))
		if err != nil {
			return err
		}
		defer root.Zero()

		subkey = hkd32.DeriveSubkey(root, path)

	case ctx.Bool("use_seed"):
		s, err := readSeed(ctx)
		if err != nil {
			return err
		}
		defer s.Zero()

		subkey = hkd32.SeedSubkey(s, path)

	default:
		m, err := readMnemonic(ctx)
		if err != nil {
			return err
		}
		defer m.Zero()

		subkey = hkd32.MnemonicSubkey(m, path)
	}
	defer subkey.Zero()

	encoded, err := subkey.ToBech32(getConfig(ctx).Bech32HRP)
	if err != nil {
		return err
	}

	log.Debugf("Derived subkey at %v", path)

	return printJSON(ctx.App.Writer, struct {
		Path string `json:"path"`
		Key  string `json:"key"`
	}{
		Path: path.String(),
		Key:  encoded,
	})
}

var signMessageCommand = cli.Command{
	Name:      "signmessage",
	Category:  "Signing",
	Usage:     "Sign a message with a key ring key.",
	ArgsUsage: "msg",
	Description: `
	Signs msg with the key at m/1017'/coin_type'/family'/0/index of the
	mnemonic's key ring. The signature is zbase32 encoded and recoverable,
	so it can be checked with verifymessage.
	`,
	Flags: []cli.Flag{
		mnemonicFlag,
		passphraseFlag,
		cli.Uint64Flag{
			Name:  "family",
			Usage: "the key family of the signing key",
			Value: uint64(keychain.KeyFamilyNodeKey),
		},
		cli.Uint64Flag{
			Name:  "index",
			Usage: "the index of the signing key within its family",
		},
	},
	Action: actionDecorator(signMessage),
}

func signMessage(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.ShowCommandHelp(ctx, "signmessage")
	}
	msg := []byte(ctx.Args().First())

	family, index := ctx.Uint64("family"), ctx.Uint64("index")
	if family > uint64(hdpath.MaxIndex) || index > uint64(hdpath.MaxIndex) {
		return fmt.Errorf("key family and index must not exceed %d",
			hdpath.MaxIndex)
	}

	master, err := readMaster(ctx)
	if err != nil {
		return err
	}
	defer master.Zero()

	cfg := getConfig(ctx)
	ring, err := keychain.NewHDKeyRing(master, uint32(cfg.CoinType))
	if err != nil {
		return err
	}

	keyLoc := keychain.KeyLocator{
		Family: keychain.KeyFamily(family),
		Index:  uint32(index),
	}
	keyDesc, err := ring.DeriveKey(keyLoc)
	if err != nil {
		return err
	}

	sig, err := ring.SignMessageCompact(
		keyLoc, prefixMessage(msg), true,
	)
	if err != nil {
		return err
	}

	log.Debugf("Signed message with key %v", keyLoc.Path(ring.CoinType()))

	return printJSON(ctx.App.Writer, struct {
		Signature string `json:"signature"`
		PubKey    string `json:"pubkey"`
	}{
		Signature: zbase32.EncodeToString(sig),
		PubKey: hex.EncodeToString(
			keyDesc.PubKey.SerializeCompressed(),
		),
	})
}

var verifyMessageCommand = cli.Command{
	Name:      "verifymessage",
	Category:  "Signing",
	Usage:     "Verify a signature over a message.",
	ArgsUsage: "msg signature",
	Description: `
	Recovers the public key that signed msg. With --pubkey the signature is
	only valid if it was made by that key.
	`,
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "pubkey",
			Usage: "the hex encoded compressed public key to expect",
		},
	},
	Action: actionDecorator(verifyMessage),
}

func verifyMessage(ctx *cli.Context) error {
	if ctx.NArg() != 2 {
		return cli.ShowCommandHelp(ctx, "verifymessage")
	}
	args := ctx.Args()
	msg := []byte(args.Get(0))

	sig, err := zbase32.DecodeString(args.Get(1))
	if err != nil {
		return fmt.Errorf("unable to decode signature: %w", err)
	}

	digest := chainhash.DoubleHashB(prefixMessage(msg))

	valid := true
	var recovered string
	pubKey, _, err := ecdsa.RecoverCompact(sig, digest)
	if err != nil {
		log.Debugf("Unable to recover public key: %v", err)
		valid = false
	} else {
		recovered = hex.EncodeToString(pubKey.SerializeCompressed())
	}

	if valid && ctx.IsSet("pubkey") {
		expected, err := parsePubKey(ctx.String("pubkey"))
		if err != nil {
			return err
		}
		valid = expected.IsEqual(pubKey)
	}

	return printJSON(ctx.App.Writer, struct {
		Valid  bool   `json:"valid"`
		PubKey string `json:"pubkey,omitempty"`
	}{
		Valid:  valid,
		PubKey: recovered,
	})
}

// prefixMessage returns a new slice holding signedMsgPrefix followed by msg.
func prefixMessage(msg []byte) []byte {
	out := make([]byte, 0, len(signedMsgPrefix)+len(msg))
	out = append(out, signedMsgPrefix...)

	return append(out, msg...)
}

func parsePubKey(s string) (*btcec.PublicKey, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid pubkey: %w", err)
	}

	return btcec.ParsePubKey(raw)
}
