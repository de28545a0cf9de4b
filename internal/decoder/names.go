package decoder

import (
	"errors"
	"fmt"

	"github.com/danmuck/fastmon/internal/fields"
)

// Fields written by the event loop itself.
const (
	FieldProcessorEventNumber = "processor_event_number"
	FieldEventTimestamp       = "event_timestamp"
	FieldErrorSummary         = "error_summary"
)

// Event header fields.
const (
	FieldEventSequence         = "event_sequence"
	FieldEventSummary          = "event_summary"
	FieldEventContributionMask = "event_contribution_mask"
	FieldEventTimeTicks        = "event_timeticks"
	FieldEventGEMTimeHacks     = "event_gem_timehacks"
	FieldEventGEMTimeTicks     = "event_gem_timeticks"
)

// Run-context fields.
const (
	FieldContextOpenMode        = "meta_context_open_mode"
	FieldContextOpenDatagrams   = "meta_context_open_datagrams"
	FieldContextOpenModeChanges = "meta_context_open_modechanges"
	FieldContextOpenAction      = "meta_context_open_action"
	FieldContextOpenReason      = "meta_context_open_reason"
	FieldContextOpenCrate       = "meta_context_open_crate"
	FieldContextCloseAction     = "meta_context_close_action"
	FieldContextCloseReason     = "meta_context_close_reason"
	FieldContextRunPlatform     = "meta_context_run_platform"
	FieldContextRunOrigin       = "meta_context_run_origin"
	FieldContextRunID           = "meta_context_run_id"
	FieldContextRunStartedAt    = "meta_context_run_startedat"
	FieldContextScalersElapsed  = "meta_context_gem_scalers_elapsed"
	FieldContextScalersLivetime = "meta_context_gem_scalers_livetime"
	FieldContextScalersPrescale = "meta_context_gem_scalers_prescaled"
	FieldContextScalersDiscard  = "meta_context_gem_scalers_discarded"
	FieldContextScalersSequence = "meta_context_gem_scalers_sequence"
	FieldContextScalersDeadzone = "meta_context_gem_scalers_deadzone"

	// time tone fields are built per tone: meta_context_<current|previous>_<suffix>
	contextCurrent  = "meta_context_current_"
	contextPrevious = "meta_context_previous_"
)

// GEM fields.
const (
	FieldGEMConditionSummary = "gem_condition_summary"
	FieldGEMTKRVector        = "gem_tkr_vector"
	FieldGEMROIVector        = "gem_roi_vector"
	FieldGEMCalLEVector      = "gem_cal_le_vector"
	FieldGEMCalHEVector      = "gem_cal_he_vector"
	FieldGEMCNOVector        = "gem_cno_vector"
	FieldGEMTriggerTime      = "gem_trigger_time"
	FieldGEMOnePPSTime       = "gem_onepps_time"
	FieldGEMLiveTime         = "gem_live_time"
	FieldGEMDiscarded        = "gem_discarded"
	FieldGEMTKRVectorTower   = "gem_tkr_vector_tower"
	FieldGEMCalLEVectorTower = "gem_cal_le_vector_tower"
	FieldGEMCalHEVectorTower = "gem_cal_he_vector_tower"
)

// TKR fields.
const (
	FieldTKRHitCount             = "tkr_hit_count"
	FieldTKRHitCountTower        = "tkr_hit_count_tower"
	FieldTKRHitCountTowerLayer   = "tkr_hit_count_tower_layer"
	FieldTKRFirstStripTowerLayer = "tkr_first_strip_tower_layer"
	FieldTKRTowerCount           = "tkr_tower_count"
	FieldTKRDiagnosticWords      = "tkr_diagnostic_words_tower"
	FieldTKRDiagnostic           = "tkr_diagnostic_tower"
)

// CAL fields.
const (
	FieldCALLogCount               = "cal_log_count"
	FieldCALLogCountTower          = "cal_log_count_tower"
	FieldCALTowerCount             = "cal_tower_count"
	FieldCALLogHitTowerLayerColumn = "cal_log_hit_tower_layer_column"
	FieldCALLogEndRangeHit         = "cal_log_end_range_hit"
	FieldCALLogEndValue            = "cal_log_end_value"
	FieldCALDiagnosticWords        = "cal_diagnostic_words_tower"
	FieldCALDiagnostic             = "cal_diagnostic_tower"
)

// ACD fields.
const (
	FieldACDTileCount = "acd_tile_count"
	FieldACDTileHit   = "acd_tile_hit"
	FieldACDTilePHA   = "acd_tile_pha"
)

// RequiredFields must be declared by every schema.
var RequiredFields = []string{
	FieldProcessorEventNumber,
	FieldEventTimestamp,
	FieldErrorSummary,
}

var ErrMissingRequiredField = errors.New("decoder: required field not declared")

// CheckRequired reports every required field missing from r.
func CheckRequired(r *fields.Registry) error {
	var errs []error
	for _, name := range RequiredFields {
		if !r.Has(name) {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingRequiredField, name))
		}
	}
	return errors.Join(errs...)
}
