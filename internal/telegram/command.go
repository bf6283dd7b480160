package telegram

import (
	"fmt"
	"strconv"
	"strings"

	"compsbot/internal/domain"
)

const compUsage = "Usage:\n" +
	"/comp <address> [--condition excellent|fair|poor] [--fee 20000] [--mao aggressive|standard|hot]\n" +
	"Defaults if omitted → MAO: aggressive (65%), Condition: fair, Fee: 20000"

const aboutText = "\U0001F4D8 *About CompsMAObot*\n" +
	"• *MAO tiers*: aggressive 65%, standard 70%, hot 75% (applied to ARV).\n" +
	"• *Defaults* if you omit flags: MAO=aggressive, condition=fair, fee=$20,000.\n" +
	"• *Rehab $/sf*: Excellent $20, Fair $42.5, Poor $85 (× subject sqft).\n" +
	"• *Command*: `/comp <address> [--condition excellent|fair|poor] [--fee 20000] [--mao aggressive|standard|hot]`"

// parseFlags scans "--name value..." pairs. A flag's value runs until the
// next "--" token, so multi-word values need no quoting.
func parseFlags(text string) map[string]string {
	out := make(map[string]string)
	fields := strings.Fields(text)
	for i := 0; i < len(fields); i++ {
		if !strings.HasPrefix(fields[i], "--") || len(fields[i]) == 2 {
			continue
		}
		name := strings.ToLower(strings.TrimPrefix(fields[i], "--"))
		var value []string
		for i+1 < len(fields) && !strings.HasPrefix(fields[i+1], "--") {
			value = append(value, fields[i+1])
			i++
		}
		out[name] = strings.Join(value, " ")
	}
	return out
}

// stripFlags returns the free-text address: everything before the first
// "--" token.
func stripFlags(text string) string {
	fields := strings.Fields(text)
	for i, f := range fields {
		if strings.HasPrefix(f, "--") {
			fields = fields[:i]
			break
		}
	}
	return strings.Join(fields, " ")
}

// parseCompCommand turns "/comp <address> [--flags]" into a PacketRequest.
// Defaults for omitted flags are applied later by the pipeline's Normalize.
func parseCompCommand(text string) (domain.PacketRequest, error) {
	parts := strings.SplitN(strings.TrimSpace(text), " ", 2)
	if len(parts) < 2 || strings.TrimSpace(parts[1]) == "" {
		return domain.PacketRequest{}, fmt.Errorf("%w: missing address", domain.ErrValidation)
	}

	addrAndFlags := parts[1]
	fl := parseFlags(addrAndFlags)

	address := strings.TrimRight(stripFlags(addrAndFlags), ",")
	if address == "" {
		return domain.PacketRequest{}, fmt.Errorf("%w: missing address", domain.ErrValidation)
	}

	req := domain.PacketRequest{
		Address:       address,
		Condition:     fl["condition"],
		HighlightTier: fl["mao"],
	}

	if v, ok := fl["fee"]; ok {
		fee, err := strconv.ParseFloat(strings.TrimPrefix(v, "$"), 64)
		if err != nil {
			return domain.PacketRequest{}, fmt.Errorf("%w: bad --fee value %q", domain.ErrValidation, v)
		}
		req.AssignmentFee = int(fee)
	}

	intFlag := func(name string, dst *int) error {
		v, ok := fl[name]
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: bad --%s value %q", domain.ErrValidation, name, v)
		}
		*dst = n
		return nil
	}
	if err := intFlag("beds", &req.Overrides.Beds); err != nil {
		return domain.PacketRequest{}, err
	}
	if err := intFlag("sqft", &req.Overrides.Sqft); err != nil {
		return domain.PacketRequest{}, err
	}
	if err := intFlag("year", &req.Overrides.Year); err != nil {
		return domain.PacketRequest{}, err
	}
	if v, ok := fl["baths"]; ok {
		baths, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return domain.PacketRequest{}, fmt.Errorf("%w: bad --baths value %q", domain.ErrValidation, v)
		}
		req.Overrides.Baths = baths
	}

	return req, nil
}
