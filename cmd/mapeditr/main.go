// Command mapeditr is an offline batch editor for Minetest world
// databases: it opens a map.sqlite file and runs one bulk-edit command
// against it end to end.
package main

import (
	"fmt"

	"github.com/grailbio/base/cmdutil"
	"v.io/x/lib/cmdline"

	"github.com/grailbio/mapeditr/instance"
	"github.com/grailbio/mapeditr/spatial"
)

// sharedFlags are the optional flags most subcommands share; each
// command's newCmd* function wires only the subset it needs.
type sharedFlags struct {
	p1, p2       *string
	invert       *bool
	offset       *string
	node         *string
	newNode      *string
	obj          *string
	items        *string
	item         *string
	newItem      *string
	key          *string
	value        *string
	delete       *bool
	deleteMeta   *bool
	param2       *int
	secondaryMap *string
}

func addShared(cmd *cmdline.Command, which ...string) sharedFlags {
	var f sharedFlags
	has := make(map[string]bool, len(which))
	for _, w := range which {
		has[w] = true
	}
	if has["p1p2"] {
		f.p1 = cmd.Flags.String("p1", "", "Area corner 1, as \"x y z\"")
		f.p2 = cmd.Flags.String("p2", "", "Area corner 2, as \"x y z\"")
	}
	if has["invert"] {
		f.invert = cmd.Flags.Bool("invert", false, "Apply outside the area instead of inside it")
	}
	if has["offset"] {
		f.offset = cmd.Flags.String("offset", "0 0 0", "Destination offset, as \"x y z\"")
	}
	if has["node"] {
		f.node = cmd.Flags.String("node", "", "Node name filter")
	}
	if has["newnode"] {
		f.newNode = cmd.Flags.String("newnode", "", "Replacement node name")
	}
	if has["obj"] {
		f.obj = cmd.Flags.String("obj", "", "Object name filter")
	}
	if has["items"] {
		f.items = cmd.Flags.String("items", "", "Comma-separated dropped-item name filter")
	}
	if has["item"] {
		f.item = cmd.Flags.String("item", "", "Item name to replace")
		f.newItem = cmd.Flags.String("newitem", "", "Replacement item name")
	}
	if has["key"] {
		f.key = cmd.Flags.String("key", "", "Metadata variable name")
		f.value = cmd.Flags.String("value", "", "Metadata variable value")
		f.delete = cmd.Flags.Bool("delete", false, "Delete the variable instead of setting it")
	}
	if has["deletemeta"] {
		f.deleteMeta = cmd.Flags.Bool("deletemeta", false, "Also clear item metadata on replacement")
	}
	if has["param2"] {
		f.param2 = cmd.Flags.Int("param2", 0, "param2 value to set")
	}
	if has["secondary"] {
		f.secondaryMap = cmd.Flags.String("secondary", "", "Secondary (source) map path, for overlay")
	}
	return f
}

func parseVec3(s string) (spatial.Vec3, error) {
	var x, y, z int
	if _, err := fmt.Sscanf(s, "%d %d %d", &x, &y, &z); err != nil {
		return spatial.Vec3{}, fmt.Errorf("invalid coordinate triple %q: %v", s, err)
	}
	return spatial.New(int32(x), int32(y), int32(z)), nil
}

func (f sharedFlags) area() (*spatial.Vec3, *spatial.Vec3, error) {
	if f.p1 == nil || *f.p1 == "" || f.p2 == nil || *f.p2 == "" {
		return nil, nil, nil
	}
	p1, err := parseVec3(*f.p1)
	if err != nil {
		return nil, nil, err
	}
	p2, err := parseVec3(*f.p2)
	if err != nil {
		return nil, nil, err
	}
	return &p1, &p2, nil
}

func (f sharedFlags) vecOffset() (spatial.Vec3, error) {
	if f.offset == nil {
		return spatial.Vec3{}, nil
	}
	return parseVec3(*f.offset)
}

func splitItems(s string) [][]byte {
	if s == "" {
		return nil
	}
	var out [][]byte
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			out = append(out, []byte(s[start:i]))
			start = i + 1
		}
	}
	return out
}

// buildArgs assembles an instance.InstArgs from the flags a subcommand
// declared, leaving every field the command didn't register at its
// zero value.
func (f sharedFlags) buildArgs(command string, yes *bool) (instance.InstArgs, error) {
	a := instance.InstArgs{Command: command, SkipConfirm: *yes}

	p1, p2, err := f.area()
	if err != nil {
		return a, err
	}
	a.P1, a.P2 = p1, p2

	if f.invert != nil {
		a.Invert = *f.invert
	}
	if f.offset != nil {
		off, err := f.vecOffset()
		if err != nil {
			return a, err
		}
		a.Offset = off
	}
	if f.node != nil {
		a.Node = []byte(*f.node)
	}
	if f.newNode != nil {
		a.NewNode = []byte(*f.newNode)
	}
	if f.obj != nil {
		a.Obj = []byte(*f.obj)
	}
	if f.items != nil {
		a.Items = splitItems(*f.items)
	}
	if f.item != nil {
		a.Item = []byte(*f.item)
		a.NewItem = []byte(*f.newItem)
	}
	if f.key != nil {
		a.Key = *f.key
		a.Value = []byte(*f.value)
		a.Delete = *f.delete
	}
	if f.deleteMeta != nil {
		a.DeleteMeta = *f.deleteMeta
	}
	if f.param2 != nil {
		a.Param2 = uint8(*f.param2)
	}
	if f.secondaryMap != nil {
		a.SecondaryDBPath = *f.secondaryMap
	}
	return a, nil
}

func runCommand(mapPath string, a instance.InstArgs, secondary string) error {
	status := instance.NewStatusServer(64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range status.Events() {
			printEvent(status, ev)
		}
	}()
	err := instance.NewWorker(status).Run(mapPath, secondary, a)
	status.Close()
	<-done
	return err
}

func printEvent(status *instance.StatusServer, ev instance.ServerEvent) {
	switch {
	case ev.Log != nil:
		fmt.Println(ev.Log.Text)
	case ev.ConfirmRequest != nil:
		fmt.Printf("%s [y/N] ", ev.ConfirmRequest.Prompt)
		var resp string
		fmt.Scanln(&resp)
		status.SendConfirmResponse(resp == "y" || resp == "Y" || resp == "yes")
	}
}

func newEditCmd(name, short, argsName string, which []string, yes *bool) *cmdline.Command {
	cmd := &cmdline.Command{Name: name, Short: short, ArgsName: argsName, ArgsLong: "map_path is the Minetest world directory or sqlite file."}
	flags := addShared(cmd, which...)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) < 1 {
			return fmt.Errorf("%s requires a map_path argument", name)
		}
		a, err := flags.buildArgs(name, yes)
		if err != nil {
			return err
		}
		secondary := ""
		if flags.secondaryMap != nil {
			secondary = *flags.secondaryMap
		}
		return runCommand(argv[0], a, secondary)
	})
	return cmd
}

func main() {
	cmdline.HideGlobalFlagsExcept()
	yes := new(bool)

	root := &cmdline.Command{
		Name:  "mapeditr",
		Short: "Offline batch editor for Minetest world databases",
	}
	root.Flags.BoolVar(yes, "yes", false, "Skip the confirmation prompt")

	root.Children = []*cmdline.Command{
		newEditCmd("clone", "Copy a region to an offset within the same map", "map_path", []string{"p1p2", "offset"}, yes),
		newEditCmd("overlay", "Copy a region from a secondary map", "map_path", []string{"p1p2", "offset", "invert", "secondary"}, yes),
		newEditCmd("fill", "Fill a region with a single node", "map_path", []string{"p1p2", "invert", "newnode"}, yes),
		newEditCmd("replacenodes", "Replace one node with another", "map_path", []string{"p1p2", "invert", "node", "newnode"}, yes),
		newEditCmd("setparam2", "Set param2 on selected nodes", "map_path", []string{"p1p2", "invert", "node", "param2"}, yes),
		newEditCmd("deleteblocks", "Delete whole blocks", "map_path", []string{"p1p2", "invert"}, yes),
		newEditCmd("deleteobjects", "Delete static objects", "map_path", []string{"p1p2", "invert", "obj", "items"}, yes),
		newEditCmd("deletetimers", "Delete node timers", "map_path", []string{"p1p2", "invert", "node"}, yes),
		newEditCmd("deletemeta", "Delete node metadata entries", "map_path", []string{"p1p2", "invert", "node"}, yes),
		newEditCmd("setmetavar", "Set or delete a metadata variable", "map_path", []string{"p1p2", "invert", "node", "key"}, yes),
		newEditCmd("replaceininv", "Replace an item name inside inventories", "map_path", []string{"p1p2", "invert", "node", "item", "deletemeta"}, yes),
		newEditCmd("vacuum", "Compact the map database", "map_path", nil, yes),
	}

	cmdline.Main(root)
}
