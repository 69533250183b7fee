package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/sirupsen/logrus"

	"github.com/denysvitali/proximity-go"
	"github.com/denysvitali/proximity-go/model"
)

var logger = logrus.StandardLogger()

type AdvertiseCmd struct {
	Time int64 `arg:"--time,-t" help:"Unix time to advertise at (default: now)"`
}

type IdentifiersCmd struct {
	From int64 `arg:"--from,required" help:"Unix start time"`
	To   int64 `arg:"--to,required" help:"Unix end time (inclusive)"`
}

type DecodeCmd struct {
	Data string `arg:"positional,required" help:"Hex encoded advertising data"`
	RSSI int    `arg:"--rssi" default:"-60" help:"Signal strength of the report"`
}

type BroadcastCmd struct {
	Interval time.Duration `arg:"--interval" default:"1m" help:"How often to check for a rotated identifier"`
}

var args struct {
	Advertise   *AdvertiseCmd   `arg:"subcommand:advertise" help:"print the advertisement of a key"`
	Identifiers *IdentifiersCmd `arg:"subcommand:identifiers" help:"print the identifier schedule of a key"`
	Decode      *DecodeCmd      `arg:"subcommand:decode" help:"decode a raw advertisement"`
	Broadcast   *BroadcastCmd   `arg:"subcommand:broadcast" help:"keep the advertisement of a key rotated"`

	Protocol string `arg:"--protocol,-p" default:"gaen" help:"gaen, dp3t, eddystone-uid or ibeacon"`
	Key      string `arg:"--key,-k,env:PROXIMITY_KEY" help:"Secret key, at most 16 bytes (random UUID for ibeacon when empty)"`
	HexKey   bool   `arg:"--hex" help:"Parse the key as hex"`
	LogLevel string `arg:"--log-level" default:"info" help:"Log level"`
}

func main() {
	p := arg.MustParse(&args)
	setLogLevel(args.LogLevel)

	var err error
	switch {
	case args.Advertise != nil:
		err = advertise(args.Advertise)
	case args.Identifiers != nil:
		err = identifiers(args.Identifiers)
	case args.Decode != nil:
		err = decode(args.Decode)
	case args.Broadcast != nil:
		err = broadcast(args.Broadcast)
	default:
		p.Fail("missing subcommand")
	}
	if err != nil {
		logger.Fatal(err)
	}
}

func setLogLevel(level string) {
	l, err := logrus.ParseLevel(level)
	if err != nil {
		logger.Fatalf("failed to parse log level: %v", err)
	}
	logger.SetLevel(l)
}

func secretKey() (model.SecretKey, error) {
	if args.Key == "" {
		protocol, err := proximity.ParseProtocol(args.Protocol)
		if err != nil {
			return model.SecretKey{}, err
		}
		if protocol == model.IBeacon {
			u := proximity.RandomIBeaconUUID()
			logger.Infof("random iBeacon proximity UUID %s", u)
			return model.SecretKey(u), nil
		}
	}
	if args.HexKey {
		return proximity.KeyFromHex(args.Key)
	}
	return proximity.KeyFromString(args.Key)
}

func engine() (proximity.Engine, error) {
	protocol, err := proximity.ParseProtocol(args.Protocol)
	if err != nil {
		return nil, err
	}
	return proximity.EngineFor(protocol)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func advertise(cmd *AdvertiseCmd) error {
	e, err := engine()
	if err != nil {
		return err
	}
	key, err := secretKey()
	if err != nil {
		return err
	}
	at := time.Now()
	if cmd.Time != 0 {
		at = time.Unix(cmd.Time, 0)
	}
	adv, err := proximity.Advertise(e, key, at)
	if err != nil {
		return fmt.Errorf("unable to build advertisement: %w", err)
	}
	layout, err := proximity.LayoutFor(adv.Protocol)
	if err != nil {
		return err
	}
	ad, err := layout.Encode(adv)
	if err != nil {
		return fmt.Errorf("unable to frame advertisement: %w", err)
	}
	return printJSON(map[string]any{
		"advertisement": adv,
		"ad":            hex.EncodeToString(ad),
	})
}

func identifiers(cmd *IdentifiersCmd) error {
	protocol, err := proximity.ParseProtocol(args.Protocol)
	if err != nil {
		return err
	}
	key, err := secretKey()
	if err != nil {
		return err
	}
	from := time.Unix(cmd.From, 0)
	var k model.MainKey
	switch protocol {
	case model.GAEN:
		k = proximity.NewGAENKey(key)
	case model.DP3T:
		k = proximity.NewDP3TKey(key, from)
	default:
		return fmt.Errorf("%w: %s identifiers do not rotate", proximity.ErrUnsupported, protocol)
	}
	ids, err := k.GetIdentifiers(from, time.Unix(cmd.To, 0))
	if err != nil {
		return err
	}
	return printJSON(ids)
}

func decode(cmd *DecodeCmd) error {
	data, err := hex.DecodeString(cmd.Data)
	if err != nil {
		return fmt.Errorf("unable to decode hex: %w", err)
	}
	sighting, protocol, err := proximity.DecodeAdvertisement(data, cmd.RSSI, float64(cmd.RSSI))
	if err != nil {
		return err
	}
	return printJSON(map[string]any{
		"protocol": protocol,
		"sighting": sighting,
	})
}

// logAdvertiser prints every advertisement it is asked to put on air.
type logAdvertiser struct{}

func (logAdvertiser) Start(adv model.Advertisement) error {
	layout, err := proximity.LayoutFor(adv.Protocol)
	if err != nil {
		return err
	}
	ad, err := layout.Encode(adv)
	if err != nil {
		return err
	}
	fmt.Println(hex.EncodeToString(ad))
	return nil
}

func (logAdvertiser) Stop() error {
	logger.Debug("advertisement withdrawn")
	return nil
}

var _ proximity.Advertiser = logAdvertiser{}

func broadcast(cmd *BroadcastCmd) error {
	e, err := engine()
	if err != nil {
		return err
	}
	key, err := secretKey()
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return proximity.NewBroadcaster(e, key, logAdvertiser{}).Run(ctx, cmd.Interval)
}
