package audio

// Provider is what frontends need from the audio side: mixed samples and
// the per-channel debug controls.
type Provider interface {
	// EndFrame flushes the mixer and returns interleaved stereo samples.
	EndFrame() []int16

	ToggleChannel(channel int)
	SoloChannel(channel int)
	UnmuteAll()
	GetChannelStatus() (ch1, ch2, ch3, ch4 bool)
}

var _ Provider = (*APU)(nil)

// EndFrame flushes the attached mixer. Without a mixer it returns nil.
func (a *APU) EndFrame() []int16 {
	if a.mixer == nil {
		return nil
	}
	return a.mixer.EndFrame()
}
