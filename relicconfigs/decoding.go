package relicconfigs

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/reusee/relic/classfile"
	"github.com/reusee/relic/cmds"
	"github.com/reusee/relic/configs"
	"github.com/reusee/relic/dcr"
	"github.com/reusee/relic/logs"
	"github.com/reusee/relic/swf"
	"github.com/reusee/relic/units"
	"github.com/reusee/relic/vars"
	"github.com/reusee/relic/xap"
)

type MaxDecodedBytes int64

var maxDecodedBytesFlag = cmds.Var[int64]("-max-decoded-bytes")

func (Module) MaxDecodedBytes(
	loader configs.Loader,
) MaxDecodedBytes {
	return MaxDecodedBytes(vars.FirstNonZero(
		*maxDecodedBytesFlag,
		configs.First[int64](loader, "maxDecodedBytes"),
		units.DefaultMaxDecodedBytes,
	))
}

func (Module) Limits(
	max MaxDecodedBytes,
) units.Limits {
	return units.Limits{
		MaxDecodedBytes: int64(max),
	}
}

// LegacyCharset names the charset of SWF strings before version 6 and of
// Director text.
type LegacyCharset string

var legacyCharsetFlag = cmds.Var[string]("-legacy-charset")

func (Module) LegacyCharset(
	loader configs.Loader,
) LegacyCharset {
	return LegacyCharset(vars.FirstNonZero(
		*legacyCharsetFlag,
		configs.First[string](loader, "legacyCharset"),
		units.DefaultLegacyCharset,
	))
}

// Decoders is the sniffing order handed to units.Decode.
type Decoders []units.Decoder

func (Module) Decoders(
	limits units.Limits,
	charset LegacyCharset,
	logger logs.Logger,
) Decoders {
	enc, err := units.Charset(string(charset))
	if err != nil {
		logger.Warn("unknown legacy charset",
			"charset", charset,
			"fallback", units.DefaultLegacyCharset,
			"error", err,
		)
		enc = charmap.Windows1252
	}
	return newDecoders(limits, enc)
}

func newDecoders(limits units.Limits, enc encoding.Encoding) Decoders {
	return Decoders{
		swf.Decoder{
			Limits:  limits,
			Charset: enc,
		},
		classfile.Decoder{},
		xap.Decoder{
			Limits: limits,
		},
		dcr.Decoder{
			Limits:  limits,
			Charset: enc,
		},
	}
}

func (d Decoders) Decode(data []byte) (units.Unit, error) {
	return units.Decode(data, d...)
}
