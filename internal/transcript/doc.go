// Package transcript holds the domain types shared by the pipeline, the
// version store and the external representation layer: segments, speakers,
// transcriptions, immutable versions, and derived content.
//
// Speaker aggregates are never stored independently; ComputeSpeakers derives
// them from a segment set whenever segments change.
package transcript
