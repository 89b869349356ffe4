package models

// AssetState is the processing state of an uploaded remote asset.
type AssetState string

const (
	AssetProcessing AssetState = "processing"
	AssetReady      AssetState = "ready"
	AssetFailed     AssetState = "failed"
)

// Terminal reports whether no further transition can occur.
func (s AssetState) Terminal() bool {
	return s == AssetReady || s == AssetFailed
}

// RemoteAsset identifies a previously uploaded artifact on the inference
// service. It is never mutated locally; a fresh value replaces it on every
// state fetch.
type RemoteAsset struct {
	Name     string     `json:"name"`
	URI      string     `json:"uri"`
	MIMEType string     `json:"mime_type"`
	State    AssetState `json:"state"`
	// RawState keeps the service's own state vocabulary for diagnostics.
	RawState string `json:"raw_state,omitempty"`
}

// ReleasePolicy controls when a slot's remote assets are deleted.
type ReleasePolicy string

const (
	// ReleaseNever leaves remote assets alone, the document and image
	// default.
	ReleaseNever ReleasePolicy = "never"
	// ReleaseAfterSend deletes remote assets once a reply has been
	// received, the audio and video default.
	ReleaseAfterSend ReleasePolicy = "after-send"
	// ReleaseOnReset deletes remote assets when the slot is reset.
	ReleaseOnReset ReleasePolicy = "on-reset"
)

// DefaultReleasePolicy returns the built-in policy for a slot.
func DefaultReleasePolicy(slot Slot) ReleasePolicy {
	if slot.RequiresPolling() {
		return ReleaseAfterSend
	}
	return ReleaseNever
}
