package menu

import (
	"sort"

	tele "gopkg.in/telebot.v4"
)

// Command is a slash command exposed by the bot.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	AdminOnly   bool
}

// route maps a callback trigger to its destination. A trigger used by a
// single screen resolves directly; a trigger shared by several screens is
// disambiguated by the menu the user is currently on.
type route struct {
	direct   *Menu
	byOrigin map[string]*Menu
}

// Registry holds every menu, route and command. It is populated during
// startup and frozen before the bot starts serving updates; registration
// after Freeze panics.
type Registry struct {
	menus    map[string]*Menu
	routes   map[string]*route
	commands map[string]Command
	wildcard *Menu
	frozen   bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		menus:    make(map[string]*Menu),
		routes:   make(map[string]*route),
		commands: make(map[string]Command),
	}
}

// Option tweaks a menu at registration time.
type Option func(*Menu)

// IgnoreNotModified makes the menu absorb "message is not modified" edit
// errors, for screens that re-render identical content on refresh.
func IgnoreNotModified() Option {
	return func(m *Menu) { m.ignoreNotModified = true }
}

// CameFrom restricts the menu to a single predecessor screen. The trigger
// is then resolved only when the user is on that screen, and "back" from
// the menu returns there.
func CameFrom(origin *Menu) Option {
	return func(m *Menu) { m.cameFrom = origin.id }
}

// AddNavMenu registers a screen reached by trigger. Registering an id twice
// is a no-op returning the already-registered menu.
func (r *Registry) AddNavMenu(id, trigger string, render RenderFunc, opts ...Option) *Menu {
	return r.add(id, trigger, KindNav, render, opts)
}

// AddFuncMenu registers a one-shot action reached by trigger. It renders
// like a screen but leaves the navigation pointers untouched.
func (r *Registry) AddFuncMenu(id, trigger string, render RenderFunc, opts ...Option) *Menu {
	return r.add(id, trigger, KindFunc, render, opts)
}

func (r *Registry) add(id, trigger string, kind Kind, render RenderFunc, opts []Option) *Menu {
	r.mustBeMutable()
	if existing, ok := r.menus[id]; ok {
		return existing
	}

	m := &Menu{id: id, kind: kind, render: render}
	for _, opt := range opts {
		opt(m)
	}
	r.menus[id] = m
	if trigger != "" {
		r.addRoute(trigger, m.cameFrom, m)
	}
	return m
}

// AddRoute adds an extra trigger leading to dest when the user is on origin.
// A nil origin makes the trigger resolve from any screen.
func (r *Registry) AddRoute(trigger string, origin, dest *Menu) {
	r.mustBeMutable()
	originID := ""
	if origin != nil {
		originID = origin.id
	}
	r.addRoute(trigger, originID, dest)
}

func (r *Registry) addRoute(trigger, originID string, dest *Menu) {
	rt, ok := r.routes[trigger]
	if !ok {
		rt = &route{}
		r.routes[trigger] = rt
	}
	if originID == "" {
		rt.direct = dest
		return
	}
	if rt.byOrigin == nil {
		rt.byOrigin = make(map[string]*Menu)
	}
	rt.byOrigin[originID] = dest
}

// SetWildcard designates the fallback screen used when the session has lost
// its place.
func (r *Registry) SetWildcard(m *Menu) {
	r.mustBeMutable()
	r.wildcard = m
}

// Wildcard returns the fallback screen, or nil if none was designated.
func (r *Registry) Wildcard() *Menu { return r.wildcard }

// AttachMessageProcess wires the menu's text-conversation continuation.
// Processes are attached in a second pass, after every menu they may need
// to jump to exists.
func (r *Registry) AttachMessageProcess(m *Menu, p ProcessFunc) {
	r.mustBeMutable()
	if !m.IsNav() {
		panic("menu: process hooks attach to nav menus only")
	}
	m.messageProcess = p
}

// AttachCallbackProcess wires the menu's handler for callbacks no route
// claimed, such as pagination taps.
func (r *Registry) AttachCallbackProcess(m *Menu, p ProcessFunc) {
	r.mustBeMutable()
	if !m.IsNav() {
		panic("menu: process hooks attach to nav menus only")
	}
	m.callbackProcess = p
}

// AddCommand registers a slash command. The name is given without the
// leading slash.
func (r *Registry) AddCommand(name string, cmd Command) {
	r.mustBeMutable()
	if _, ok := r.commands[name]; ok {
		return
	}
	r.commands[name] = cmd
}

// Commands returns the registered commands keyed by name.
func (r *Registry) Commands() map[string]Command { return r.commands }

// CommandList returns the user-visible commands in a stable order, ready
// for Bot.SetCommands.
func (r *Registry) CommandList() []tele.Command {
	names := make([]string, 0, len(r.commands))
	for name, cmd := range r.commands {
		if cmd.AdminOnly {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	list := make([]tele.Command, 0, len(names))
	for _, name := range names {
		list = append(list, tele.Command{Text: name, Description: r.commands[name].Description})
	}
	return list
}

// Freeze seals the registry. Mutation after Freeze is a programming error.
func (r *Registry) Freeze() { r.frozen = true }

// Get returns the menu registered under id.
func (r *Registry) Get(id string) (*Menu, bool) {
	m, ok := r.menus[id]
	return m, ok
}

// Resolve finds the destination for a trigger fired while the user is on
// originID. Origin-scoped routes win over direct ones.
func (r *Registry) Resolve(trigger, originID string) (*Menu, bool) {
	rt, ok := r.routes[trigger]
	if !ok {
		return nil, false
	}
	if m, ok := rt.byOrigin[originID]; ok {
		return m, true
	}
	if rt.direct != nil {
		return rt.direct, true
	}
	return nil, false
}

func (r *Registry) mustBeMutable() {
	if r.frozen {
		panic("menu: registry mutated after freeze")
	}
}
