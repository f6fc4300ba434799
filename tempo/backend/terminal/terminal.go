package terminal

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/valerio/go-tempo/tempo"
	"github.com/valerio/go-tempo/tempo/audio"
	"github.com/valerio/go-tempo/tempo/backend"
	"github.com/valerio/go-tempo/tempo/backend/terminal/render"
	"github.com/valerio/go-tempo/tempo/video"
)

const (
	width  = video.FramebufferWidth
	height = video.FramebufferHeight

	gameAreaWidth  = width
	gameAreaHeight = height / 2
	dividerX       = gameAreaWidth + 1
	stateHeight    = 14
	minTermWidth   = dividerX + 1
	minTermHeight  = gameAreaHeight + 2

	logCapacity = 200
)

// Backend renders the display with half-block characters and shows the
// peripheral state next to it. Keys are read on their own goroutine so the
// controls keep working while the session is paused and no frames arrive.
type Backend struct {
	screen    tcell.Screen
	logBuffer *render.LogBuffer
	config    backend.Config
	done      chan struct{}
	logger    *slog.Logger

	mu       sync.Mutex
	logLevel slog.Level
	paused   bool
	frame    backend.Frame
}

// New creates a terminal backend drawing to the controlling terminal.
func New() *Backend {
	return &Backend{logLevel: slog.LevelInfo}
}

// NewWithScreen creates a terminal backend drawing to screen, which must
// not be initialized yet.
func NewWithScreen(screen tcell.Screen) *Backend {
	return &Backend{screen: screen, logLevel: slog.LevelInfo}
}

func (t *Backend) Init(config backend.Config) error {
	t.config = config

	if t.screen == nil {
		screen, err := tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("failed to initialize terminal: %w", err)
		}
		t.screen = screen
	}
	if err := t.screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize terminal: %w", err)
	}

	// logs written to stderr would tear the screen
	t.logger = slog.Default()
	t.logBuffer = render.NewLogBuffer(logCapacity)
	slog.SetDefault(slog.New(render.NewLogBufferHandler(t.logBuffer, slog.LevelDebug)))
	slog.Info("Terminal backend initialized")

	t.screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	t.screen.Clear()

	t.done = make(chan struct{})
	go t.pollEvents()
	return nil
}

// Update draws frame.
func (t *Backend) Update(frame backend.Frame) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if frame.Video != nil {
		t.frame = frame
	}
	t.redraw()
	return nil
}

// Cleanup restores the terminal and the logger that was active before Init.
func (t *Backend) Cleanup() error {
	if t.done == nil {
		return nil
	}

	t.screen.Fini()
	<-t.done
	t.done = nil

	slog.SetDefault(t.logger)
	slog.Info("Terminal backend closed")
	return nil
}

// pollEvents runs until the screen is finalized.
func (t *Backend) pollEvents() {
	defer close(t.done)

	for {
		ev := t.screen.PollEvent()
		if ev == nil {
			return
		}

		t.mu.Lock()
		switch ev := ev.(type) {
		case *tcell.EventKey:
			t.processKeyEvent(ev)
			t.redraw()
		case *tcell.EventResize:
			t.screen.Sync()
			t.redraw()
		}
		t.mu.Unlock()
	}
}

func (t *Backend) redraw() {
	t.render()
	t.screen.Show()
}

// Logs returns the buffer capturing log output while the terminal is active.
func (t *Backend) Logs() *render.LogBuffer {
	return t.logBuffer
}

func (t *Backend) processKeyEvent(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		t.config.Callbacks.Quit()
		return
	case tcell.KeyF1, tcell.KeyF2, tcell.KeyF3, tcell.KeyF4:
		channel := int(ev.Key()-tcell.KeyF1) + 1
		t.withAudio(func(p audio.Provider) { p.SoloChannel(channel) })
		slog.Info("Solo channel", "channel", channel)
		return
	case tcell.KeyRune:
	default:
		return
	}

	switch r := ev.Rune(); r {
	case 'q':
		t.config.Callbacks.Quit()
	case 'p', ' ':
		t.paused = !t.paused
		t.config.Callbacks.TogglePause()
	case 'n':
		t.config.Callbacks.Step()
	case 'r':
		t.config.Callbacks.Reset()
	case '1', '2', '3', '4':
		channel := int(r-'1') + 1
		t.withAudio(func(p audio.Provider) { p.ToggleChannel(channel) })
		slog.Info("Toggled channel", "channel", channel)
	case '0':
		t.withAudio(func(p audio.Provider) { p.UnmuteAll() })
		slog.Info("Unmuted all channels")
	case '+', '=':
		t.changeLogLevel(1)
	case '-':
		t.changeLogLevel(-1)
	}
}

func (t *Backend) withAudio(fn func(audio.Provider)) {
	if t.config.Audio == nil {
		slog.Debug("Audio controls unavailable")
		return
	}
	fn(t.config.Audio)
}

// changeLogLevel moves the display filter; +1 shows more, -1 shows less.
func (t *Backend) changeLogLevel(direction int) {
	levels := []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError}
	idx := 0
	for i, l := range levels {
		if l == t.logLevel {
			idx = i
		}
	}
	idx -= direction
	if idx < 0 || idx >= len(levels) {
		return
	}
	old := t.logLevel
	t.logLevel = levels[idx]
	slog.Info("Log filter changed", "from", old, "to", t.logLevel)
}

func (t *Backend) render() {
	termWidth, termHeight := t.screen.Size()
	t.screen.Clear()

	if termWidth < minTermWidth || termHeight < minTermHeight {
		style := tcell.StyleDefault.Foreground(tcell.ColorRed)
		msg := fmt.Sprintf("Terminal too small! Need at least %dx%d", minTermWidth, minTermHeight)
		t.drawText(0, termHeight/2, termWidth, msg, style)
		return
	}

	panelX := dividerX + 1
	panelWidth := termWidth - panelX

	t.drawBorders(termWidth, termHeight)
	if t.frame.Video != nil {
		t.drawDisplay(t.frame.Video)
	}
	t.drawState(panelX, 1, panelWidth, t.frame.Status)
	t.drawLogs(panelX, stateHeight+2, panelWidth, termHeight)
}

func (t *Backend) drawText(x, y, maxWidth int, text string, style tcell.Style) {
	for i, ch := range []rune(render.Truncate(text, maxWidth)) {
		t.screen.SetContent(x+i, y, ch, nil, style)
	}
}

func (t *Backend) drawBorders(termWidth, termHeight int) {
	borderStyle := tcell.StyleDefault.Foreground(tcell.ColorWhite)
	titleStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow)

	for y := 0; y < termHeight-1; y++ {
		t.screen.SetContent(dividerX, y, '│', nil, borderStyle)
	}
	for x := dividerX + 1; x < termWidth; x++ {
		t.screen.SetContent(x, stateHeight+1, '─', nil, borderStyle)
	}
	t.screen.SetContent(dividerX, stateHeight+1, '├', nil, borderStyle)

	title := " Display "
	if t.config.Title != "" {
		title = fmt.Sprintf(" %s ", t.config.Title)
	}
	if t.paused {
		title += "[PAUSED] "
	}
	t.drawText(1, 0, dividerX-1, title, titleStyle)
	t.drawText(dividerX+2, 0, termWidth-dividerX-2, " State ", titleStyle)
	t.drawText(dividerX+2, stateHeight+1, termWidth-dividerX-2,
		fmt.Sprintf(" Logs [%s] (-/+ filter) ", t.logLevel), titleStyle)

	help := " Q/ESC=quit P=pause N=step R=reset 1-4=toggle channel F1-F4=solo 0=unmute all "
	t.drawText(0, termHeight-1, termWidth, help, borderStyle)
}

func (t *Backend) drawDisplay(frame *video.FrameBuffer) {
	frameData := frame.ToSlice()
	for y := 0; y < height; y += 2 {
		for x := 0; x < width; x++ {
			topShade := render.PixelToShade(frameData[y*width+x])
			bottomShade := render.PixelToShade(frameData[(y+1)*width+x])

			char, fg, bg := halfBlock(topShade, bottomShade)
			style := tcell.StyleDefault.Foreground(fg).Background(bg)
			t.screen.SetContent(x, y/2+1, char, nil, style)
		}
	}
}

var shadeColors = [4]tcell.Color{
	tcell.ColorBlack,
	tcell.ColorGray,
	tcell.ColorSilver,
	tcell.ColorWhite,
}

func halfBlock(topShade, bottomShade int) (rune, tcell.Color, tcell.Color) {
	char := render.GetHalfBlockChar(topShade, bottomShade)
	top, bottom := shadeColors[topShade], shadeColors[bottomShade]

	switch {
	case topShade == bottomShade:
		return char, top, tcell.ColorDefault
	case topShade == 3:
		return char, bottom, top
	default:
		return char, top, bottom
	}
}

func (t *Backend) drawState(x, y, w int, s tempo.Status) {
	if w <= 0 {
		return
	}
	style := tcell.StyleDefault.Foreground(tcell.ColorBlue)
	mutedStyle := tcell.StyleDefault.Foreground(tcell.ColorGray)

	lines := []string{
		fmt.Sprintf("%s  frame %d  cycles %d  carry %d", s.Revision, s.Frames, s.Cycles, s.Carry),
		fmt.Sprintf("IE 0x%02X  IF 0x%02X", s.IE, s.IF),
		fmt.Sprintf("LY %d  LYC %d  mode %s", s.Video.LY, s.Video.LYC, s.Video.Mode),
		fmt.Sprintf("LCDC 0x%02X  STAT 0x%02X  SCX %d  SCY %d", s.Video.LCDC, s.Video.STAT, s.Video.SCX, s.Video.SCY),
	}
	for _, tm := range s.Timers {
		lines = append(lines, fmt.Sprintf("TIM%d cnt 0x%04X rel 0x%04X ctl 0x%04X",
			tm.ID, tm.Counter, tm.Reload, tm.Control))
	}
	lines = append(lines, fmt.Sprintf("NR50 0x%02X  NR51 0x%02X  NR52 0x%02X  step %d",
		s.Audio.NR50, s.Audio.NR51, s.Audio.NR52, s.Audio.Step))

	row := y
	for _, line := range lines {
		t.drawText(x+1, row, w-1, line, style)
		row++
	}
	for i, ch := range s.Audio.Channels {
		state := "off"
		if ch.Enabled {
			state = "on "
		}
		line := fmt.Sprintf("CH%d %-6s %s vol %2d len %3d freq 0x%03X", i+1, ch.Kind, state, ch.Volume, ch.Length, ch.Frequency)
		lineStyle := style
		if ch.Muted {
			line += " muted"
			lineStyle = mutedStyle
		}
		t.drawText(x+1, row, w-1, line, lineStyle)
		row++
	}
}

func (t *Backend) drawLogs(x, y, w, termHeight int) {
	available := termHeight - y - 2
	if w <= 0 || available <= 0 {
		return
	}

	debugStyle := tcell.StyleDefault.Foreground(tcell.ColorGray)
	infoStyle := tcell.StyleDefault.Foreground(tcell.ColorBlue)
	warnStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow)
	errStyle := tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)

	for i, entry := range t.logBuffer.GetRecent(available, t.logLevel) {
		style := infoStyle
		switch {
		case entry.Level >= slog.LevelError:
			style = errStyle
		case entry.Level >= slog.LevelWarn:
			style = warnStyle
		case entry.Level < slog.LevelInfo:
			style = debugStyle
		}
		t.drawText(x+1, y+1+i, w-1, render.FormatLogEntry(entry), style)
	}
}
