package playcmder

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/megaman333/Clover-Edition/cmd/clover/setup"
	"github.com/megaman333/Clover-Edition/pkg/config"
	"github.com/megaman333/Clover-Edition/pkg/logger"
	"github.com/megaman333/Clover-Edition/pkg/storage/sqlite"
	"github.com/megaman333/Clover-Edition/story"
)

const playLongDesc string = `Play an interactive story in the console.

The model continues the story after every action you type. Between
turns the engine rolls a d20 to frame the outcome and offers a set of
suggested actions; type a number to pick one.

In-game commands:
  help     show this help
  print    print the whole story so far
  revert   undo the last action
  save     save the story
  stories  list saved stories
  load ID  resume a saved story
  quit     leave the game

Examples:
  clover play
  clover play --config ~/.clover/config.toml --db ~/.clover/stories.db`

const playShortDesc string = "Play an interactive story in the console"

type playCommander struct {
	configPath string
	dbPath     string
	debug      bool

	engine *story.Engine
	store  *sqlite.Store
	out    *bufio.Writer
	in     *bufio.Scanner

	settings config.Settings
	styles   styles
	pending  []story.ActionCandidate
}

type styles struct {
	ai        lipgloss.Style
	player    lipgloss.Style
	menu      lipgloss.Style
	message   lipgloss.Style
	errorText lipgloss.Style
}

func NewPlayCmd() *cobra.Command {
	cmder := &playCommander{}

	cmd := &cobra.Command{
		Use:   "play",
		Short: playShortDesc,
		Long:  playLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&cmder.configPath, "config", "c", "config.toml", "Path to the settings file")
	cmd.Flags().StringVar(&cmder.dbPath, "db", "stories.db", "Path to the story database")
	cmd.Flags().BoolVar(&cmder.debug, "debug", false, "Enable debug logging")

	return cmd
}

func (c *playCommander) run(ctx context.Context) error {
	log := logger.NewLogger(c.debug)
	defer log.Sync()

	settings, err := setup.LoadSettings(c.configPath, log)
	if err != nil {
		return err
	}
	c.settings = settings

	wrap := settings.Console.TextWrapWidth
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 1 {
		wrap = w
	}
	c.styles = styles{
		ai:        lipgloss.NewStyle().Width(wrap),
		player:    lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		menu:      lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		message:   lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		errorText: lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	}

	c.out = bufio.NewWriter(os.Stdout)
	defer c.out.Flush()
	c.in = bufio.NewScanner(os.Stdin)

	c.println(c.styles.message, "Initializing the story engine...")
	c.out.Flush()

	engine, err := setup.NewEngine(ctx, settings, log)
	if err != nil {
		return err
	}
	c.engine = engine
	go setup.WatchSettings(ctx, c.configPath, engine, log)

	store, err := sqlite.NewStore(c.dbPath)
	if err != nil {
		return err
	}
	c.store = store
	defer store.Close()

	if err := c.startStory(ctx); err != nil {
		return err
	}

	return c.playLoop(ctx)
}

func (c *playCommander) startStory(ctx context.Context) error {
	storyContext := c.prompt("Context> ")
	opening := c.prompt("Prompt> ")
	title := c.prompt("Title (blank for untitled)> ")
	if title == "" {
		title = "untitled"
	}

	c.println(c.styles.message, "\nGenerating story...")
	c.out.Flush()

	st, err := c.engine.StartStory(ctx, title, storyContext, opening, nil)
	if err != nil {
		return err
	}

	c.println(c.styles.ai, "\n"+st.Context+"\n"+st.Opening)
	c.offerSuggestions(ctx)
	return nil
}

func (c *playCommander) playLoop(ctx context.Context) error {
	for {
		if c.settings.Console.Bell {
			fmt.Fprint(c.out, "\a")
		}
		input := c.prompt("> ")

		switch {
		case input == "quit":
			return nil
		case input == "help":
			c.println(c.styles.menu, playLongDesc)
		case input == "print":
			c.println(c.styles.ai, c.engine.Story().Text())
		case input == "revert":
			if !c.engine.Story().Revert() {
				c.println(c.styles.errorText, "You can't go back any farther.")
				continue
			}
			c.println(c.styles.message, "Last action reverted.")
			c.println(c.styles.ai, c.engine.Story().LatestResult())
		case input == "save":
			if err := c.store.Save(ctx, c.engine.Story().Record()); err != nil {
				c.println(c.styles.errorText, "Could not save: "+err.Error())
				continue
			}
			c.println(c.styles.message, "Saved as "+c.engine.Story().ID)
		case input == "stories":
			c.listStories(ctx)
		case strings.HasPrefix(input, "load "):
			c.loadStory(ctx, strings.TrimSpace(strings.TrimPrefix(input, "load ")))
		default:
			if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(c.pending) {
				input = c.pending[n-1].Text
				c.println(c.styles.player, "> "+input)
			}
			c.takeTurn(ctx, input)
		}
	}
}

func (c *playCommander) takeTurn(ctx context.Context, input string) {
	turn, err := c.engine.Act(ctx, input, nil)
	if err != nil {
		c.println(c.styles.errorText, "Generation failed: "+err.Error())
		return
	}

	if turn.Dice != nil {
		c.println(c.styles.menu, fmt.Sprintf("[d20: %d, %s]", turn.Dice.Roll, turn.Dice.Tier))
	}

	if turn.LoopDetected {
		c.println(c.styles.errorText,
			"Whoops, that action caused the model to start looping. Try something else.")
		return
	}

	c.println(c.styles.ai, turn.Result)
	c.offerSuggestions(ctx)
}

func (c *playCommander) offerSuggestions(ctx context.Context) {
	c.pending = nil
	if c.settings.Suggestions.Count == 0 {
		return
	}

	candidates, err := c.engine.SuggestActions(ctx)
	if err != nil {
		c.println(c.styles.errorText, "Could not generate suggestions: "+err.Error())
		return
	}
	if len(candidates) == 0 {
		return
	}

	c.pending = candidates
	c.println(c.styles.menu, "\nYou could:")
	for i, cand := range candidates {
		c.println(c.styles.menu, fmt.Sprintf("  %d: %s", i+1, cand.Text))
	}
}

func (c *playCommander) listStories(ctx context.Context) {
	recs, err := c.store.List(ctx)
	if err != nil {
		c.println(c.styles.errorText, "Could not list stories: "+err.Error())
		return
	}
	if len(recs) == 0 {
		c.println(c.styles.message, "No saved stories.")
		return
	}
	for _, rec := range recs {
		c.println(c.styles.menu, fmt.Sprintf("%s  %s (%s)", rec.ID, rec.Title,
			rec.CreatedAt.Format("2006-01-02 15:04")))
	}
}

func (c *playCommander) loadStory(ctx context.Context, id string) {
	rec, err := c.store.Load(ctx, id)
	if err != nil {
		c.println(c.styles.errorText, "Could not load story: "+err.Error())
		return
	}

	st := story.FromRecord(rec)
	c.engine.SetStory(st)
	c.println(c.styles.message, "Loaded "+st.Title)
	c.println(c.styles.ai, st.LatestResult())
	c.offerSuggestions(ctx)
}

func (c *playCommander) prompt(label string) string {
	fmt.Fprint(c.out, c.styles.player.Render(label))
	c.out.Flush()
	if !c.in.Scan() {
		return "quit"
	}
	return strings.TrimSpace(c.in.Text())
}

func (c *playCommander) println(style lipgloss.Style, text string) {
	fmt.Fprintln(c.out, style.Render(text))
	c.out.Flush()
}
