package decoder

import (
	"github.com/danmuck/fastmon/internal/eventerr"
	"github.com/danmuck/fastmon/internal/fields"
	"github.com/danmuck/fastmon/internal/protocol"
	"github.com/danmuck/fastmon/internal/protocol/cell"
)

type gemFields struct {
	conditionSummary fields.View
	tkrVector        fields.View
	roiVector        fields.View
	calLEVector      fields.View
	calHEVector      fields.View
	cnoVector        fields.View
	triggerTime      fields.View
	onePPSTime       fields.View
	liveTime         fields.View
	discarded        fields.View

	tkrTower   fields.View
	calLETower fields.View
	calHETower fields.View
}

func bindGEMFields(b binder) gemFields {
	return gemFields{
		conditionSummary: b.view(FieldGEMConditionSummary),
		tkrVector:        b.view(FieldGEMTKRVector),
		roiVector:        b.view(FieldGEMROIVector),
		calLEVector:      b.view(FieldGEMCalLEVector),
		calHEVector:      b.view(FieldGEMCalHEVector),
		cnoVector:        b.view(FieldGEMCNOVector),
		triggerTime:      b.view(FieldGEMTriggerTime),
		onePPSTime:       b.view(FieldGEMOnePPSTime),
		liveTime:         b.view(FieldGEMLiveTime),
		discarded:        b.view(FieldGEMDiscarded),
		tkrTower:         b.view(FieldGEMTKRVectorTower),
		calLETower:       b.view(FieldGEMCalLEVectorTower),
		calHETower:       b.view(FieldGEMCalHEVectorTower),
	}
}

func (d *Decoder) gemComponent(c cell.Contribution) eventerr.Code {
	g, err := protocol.ParseGEM(c.Payload)
	if err != nil {
		return d.fail(eventerr.CategoryGEM, eventerr.CodeTruncatedPayload, int64(len(c.Payload)), protocol.GEMLen)
	}
	f := d.gem
	_ = f.conditionSummary.SetUint(uint64(g.ConditionSummary))
	_ = f.tkrVector.SetUint(uint64(g.TKRVector))
	_ = f.roiVector.SetUint(uint64(g.ROIVector))
	_ = f.calLEVector.SetUint(uint64(g.CalLEVector))
	_ = f.calHEVector.SetUint(uint64(g.CalHEVector))
	_ = f.cnoVector.SetUint(uint64(g.CNOVector))
	_ = f.triggerTime.SetUint(uint64(g.TriggerTime))
	_ = f.onePPSTime.SetUint(uint64(g.OnePPSTime))
	_ = f.liveTime.SetUint(uint64(g.LiveTime))
	_ = f.discarded.SetUint(uint64(g.Discarded))

	// one bit per tower in each vector
	for tower := 0; tower < protocol.NumTowers; tower++ {
		d.skip(f.tkrTower.SetUint(uint64(g.TKRVector>>tower&1), tower))
		d.skip(f.calLETower.SetUint(uint64(g.CalLEVector>>tower&1), tower))
		d.skip(f.calHETower.SetUint(uint64(g.CalHEVector>>tower&1), tower))
	}

	if extra := len(c.Payload) - protocol.GEMLen; extra > 0 {
		return d.fail(eventerr.CategoryGEM, eventerr.CodeTrailingBytes, int64(c.Source), int64(extra))
	}
	return eventerr.OK
}
