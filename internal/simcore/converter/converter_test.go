package converter_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"intermittent-sim/internal/simcore/converter"
	"intermittent-sim/internal/tracedata"
)

func TestDiodeCutoff(t *testing.T) {
	d, err := converter.NewDiode(converter.DiodeConfig{VOV: 4.0})
	require.NoError(t, err)
	require.Equal(t, 1.0, d.InputEta(3.5, 1e-3))
	require.Equal(t, 0.0, d.InputEta(4.5, 1e-3))
	require.Equal(t, 3.0, d.OutputV(3.0))
}

func TestBuckClampsOutput(t *testing.T) {
	b, err := converter.NewBuck(converter.BuckConfig{VOut: 3.3, Eta: 0.9, InputEta: 0.9})
	require.NoError(t, err)
	require.Equal(t, 2.0, b.OutputV(2.0))
	require.Equal(t, 3.3, b.OutputV(5.0))
	require.Equal(t, 0.9, b.OutputEta(5.0, 1e-3))
}

func TestLDOInitialLatchFollowsStartVoltage(t *testing.T) {
	l, err := converter.NewLDO(converter.LDOConfig{
		VOut:              3.0,
		HysteresisEnabled: true,
		VHigh:             2.8,
		VLow:              2.4,
	})
	require.NoError(t, err)

	l.Reset(3.0)
	require.Equal(t, 3.0, l.OutputV(3.0))

	l.Reset(2.0)
	require.Equal(t, 0.0, l.OutputV(2.0))
}

func TestLDOHysteresisStepUsesStrictInequalities(t *testing.T) {
	l, err := converter.NewLDO(converter.LDOConfig{
		VOut:              3.0,
		HysteresisEnabled: true,
		VHigh:             2.8,
		VLow:              2.4,
	})
	require.NoError(t, err)
	l.Reset(3.0)

	l.Step(2.4) // exactly VLow: stays on (strict <)
	require.NotEqual(t, 0.0, l.OutputV(2.4))

	l.Step(2.39)
	require.Equal(t, 0.0, l.OutputV(2.39))

	l.Step(2.8) // exactly VHigh: stays off (strict >)
	require.Equal(t, 0.0, l.OutputV(2.8))

	l.Step(2.81)
	require.NotEqual(t, 0.0, l.OutputV(2.81))
}

func TestLDOTurnOffOnlyBelowVHigh(t *testing.T) {
	l, err := converter.NewLDO(converter.LDOConfig{
		VOut:              3.0,
		HysteresisEnabled: true,
		VHigh:             2.8,
		VLow:              2.4,
	})
	require.NoError(t, err)
	l.Reset(3.0)

	l.TurnOff(3.0) // above VHigh: no-op, would immediately relatch
	require.NotEqual(t, 0.0, l.OutputV(3.0))

	l.TurnOff(2.5)
	require.Equal(t, 0.0, l.OutputV(2.5))
}

func TestBuckBoostInputDisabledAboveVOV(t *testing.T) {
	bb, err := converter.NewBuckBoost(converter.BuckBoostConfig{
		VIn: 0.5, VOut: 3.3, VOV: 4.0, EfficiencyIn: 0.8, EfficiencyOut: 0.9,
	})
	require.NoError(t, err)
	require.Equal(t, 0.5, bb.InputV(3.0, 0.6, 0))
	require.Equal(t, 0.8, bb.InputEta(0.5, 1e-3))
	require.Equal(t, 0.0, bb.InputV(5.0, 0.6, 0))
	require.Equal(t, 0.0, bb.InputEta(0.0, 1e-3))
}

func sampleBoostLUT() []tracedata.LUTRow4 {
	return []tracedata.LUTRow4{
		{VIn: 0.4, VStor: 2.0, IInUA: 10, EtaPct: 60},
		{VIn: 0.6, VStor: 2.0, IInUA: 100, EtaPct: 80},
		{VIn: 0.6, VStor: 3.0, IInUA: 100, EtaPct: 75},
	}
}

func sampleBuckLUT() []tracedata.LUTRow3 {
	return []tracedata.LUTRow3{
		{VStor: 2.0, IOut: 10, Eta: 0.7},
		{VStor: 3.0, IOut: 100, Eta: 0.85},
	}
}

func TestBQ25570StateClassification(t *testing.T) {
	bq, err := converter.NewBQ25570(converter.BQ25570Config{
		VOV:      3.3,
		VOut:     3.3,
		BoostLUT: sampleBoostLUT(),
		BuckLUT:  sampleBuckLUT(),
	})
	require.NoError(t, err)

	bq.Reset(1.0)
	require.Equal(t, 0.33, bq.InputV(1.0, 0.9, 0))
	require.Equal(t, 0.06, bq.InputEta(0.33, 1e-5))
	require.Equal(t, 0.0, bq.OutputV(1.0))

	bq.Step(1.9)
	require.Equal(t, 0.0, bq.OutputV(1.9))

	bq.Step(3.5)
	require.Equal(t, 0.0, bq.InputV(3.5, 0.9, 0))
}

func TestBQ25570ChargingUsesLUTLookup(t *testing.T) {
	bq, err := converter.NewBQ25570(converter.BQ25570Config{
		VOV:      3.3,
		VOut:     3.3,
		BoostLUT: sampleBoostLUT(),
		BuckLUT:  sampleBuckLUT(),
	})
	require.NoError(t, err)
	bq.Reset(2.0)
	bq.Step(2.0)

	eta := bq.InputEta(0.6, 100e-6)
	require.Equal(t, 0.8, eta)

	outEta := bq.OutputEta(2.0, 10)
	require.Equal(t, 0.7, outEta)
}
