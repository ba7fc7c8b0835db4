package web

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/mogaika/xformedit/command"
	"github.com/mogaika/xformedit/config"
	"github.com/mogaika/xformedit/editscript"
	"github.com/mogaika/xformedit/gltfexport"
	"github.com/mogaika/xformedit/manip"
	"github.com/mogaika/xformedit/sdf"
	"github.com/mogaika/xformedit/usd"
	"github.com/mogaika/xformedit/utils"
	"github.com/mogaika/xformedit/utils/gltfutils"
	"github.com/mogaika/xformedit/webutils"
	"github.com/mogaika/xformedit/xform"
)

type jStage struct {
	Layers     []string `json:"layers"`
	EditTarget string   `json:"editTarget"`
	Prims      []string `json:"prims"`
	CanUndo    bool     `json:"canUndo"`
	CanRedo    bool     `json:"canRedo"`
}

type jOp struct {
	Name      string      `json:"name"`
	Type      string      `json:"type"`
	Precision string      `json:"precision"`
	Inverse   bool        `json:"inverse"`
	Samples   int         `json:"samples"`
	Value     interface{} `json:"value,omitempty"`
}

type jPrim struct {
	Path     string      `json:"path"`
	Type     string      `json:"type"`
	Time     string      `json:"time"`
	Reset    bool        `json:"resetXformStack"`
	Ops      []jOp       `json:"ops"`
	Local    [16]float64 `json:"local"`
	Children []string    `json:"children"`
}

// jTranslate is the body of /action/translate and every gesture message.
type jTranslate struct {
	Path  string  `json:"path"`
	Kind  string  `json:"kind"`
	Time  string  `json:"time"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Space string  `json:"space"`
}

type jCommand struct {
	Path     string     `json:"path"`
	Kind     string     `json:"kind"`
	Op       string     `json:"op"`
	State    string     `json:"state"`
	Created  bool       `json:"created"`
	Previous [3]float64 `json:"previous"`
	Current  [3]float64 `json:"current"`
	Error    string     `json:"error,omitempty"`
}

func commandInfo(c *command.Translate) jCommand {
	j := jCommand{
		Path:     c.Item().Path.String(),
		Kind:     c.Kind().String(),
		Op:       c.OpName(),
		State:    c.State().String(),
		Created:  c.Created(),
		Previous: c.PreviousValue(),
		Current:  c.CurrentValue(),
	}
	if c.Err() != nil {
		j.Error = c.Err().Error()
	}
	return j
}

func opValue(op xform.Op, t usd.TimeCode) interface{} {
	v, ok := op.Get(t)
	if !ok {
		return nil
	}
	if vec, ok := xform.AsVec3d(v); ok {
		return [3]float64(vec)
	}
	if m, ok := v.(mgl64.Mat4); ok {
		return [16]float64(m)
	}
	return fmt.Sprint(v)
}

func parseTime(r *http.Request) (usd.TimeCode, error) {
	return usd.ParseTimeCode(r.URL.Query().Get("time"))
}

func parseSpace(name string) (manip.Space, error) {
	if name == "" {
		name = config.DefaultSpace()
	}
	return manip.ParseSpace(name)
}

// SetEditTarget switches the stage edit target to the named layer.
func (s *Server) SetEditTarget(name string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.setEditTarget(name)
}

func (s *Server) setEditTarget(name string) error {
	l := s.stage.LayerByName(name)
	if l == nil {
		return errors.Errorf("Layer %q not found", name)
	}
	return s.stage.SetEditTarget(usd.NewEditTarget(l))
}

func (s *Server) HandlerJsonStage(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	defer s.lock.Unlock()

	j := jStage{
		EditTarget: s.stage.LayerName(s.stage.EditTarget().Layer()),
		CanUndo:    s.history.CanUndo(),
		CanRedo:    s.history.CanRedo(),
	}
	for _, l := range s.stage.LayerStack() {
		j.Layers = append(j.Layers, s.stage.LayerName(l))
	}
	for _, p := range s.stage.Prims() {
		j.Prims = append(j.Prims, p.String())
	}
	webutils.WriteJson(w, &j)
}

func (s *Server) HandlerJsonPrim(w http.ResponseWriter, r *http.Request) {
	t, err := parseTime(r)
	if err != nil {
		webutils.WriteError(w, errors.Wrapf(err, "Invalid time"))
		return
	}
	path := sdf.Path(r.URL.Query().Get("path"))
	if err := sdf.ValidatePath(path); err != nil {
		webutils.WriteError(w, err)
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	prim := s.stage.GetPrimAtPath(path)
	if !prim.IsValid() {
		webutils.WriteErrorStatus(w, http.StatusNotFound, errors.Errorf("Prim %q not found", path))
		return
	}
	x := xform.New(prim)
	ops, reset, err := x.GetOrderedXformOps()
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	local, _, err := x.GetLocalTransformation(t)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}

	j := jPrim{
		Path:     prim.String(),
		Type:     prim.TypeName(),
		Time:     t.String(),
		Reset:    reset,
		Ops:      make([]jOp, 0, len(ops)),
		Local:    local,
		Children: make([]string, 0),
	}
	for _, op := range ops {
		j.Ops = append(j.Ops, jOp{
			Name:      op.Name(),
			Type:      op.OpType().String(),
			Precision: op.Precision().String(),
			Inverse:   op.IsInverse(),
			Samples:   op.NumTimeSamples(),
			Value:     opValue(op, t),
		})
	}
	for _, c := range prim.Children() {
		j.Children = append(j.Children, c.Name())
	}
	webutils.WriteJson(w, &j)
}

func (s *Server) HandlerDumpLayer(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		webutils.WriteError(w, errors.Wrapf(err, "Invalid layer index"))
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	stack := s.stage.LayerStack()
	if index < 0 || index >= len(stack) {
		webutils.WriteErrorStatus(w, http.StatusNotFound, errors.Errorf("Layer %d not found", index))
		return
	}
	var buf bytes.Buffer
	if err := stack[index].Export(&buf); err != nil {
		webutils.WriteError(w, err)
		return
	}
	webutils.WriteFile(w, &buf, s.stage.LayerName(stack[index])+".yaml")
}

func (s *Server) HandlerDumpGltf(w http.ResponseWriter, r *http.Request) {
	t, err := parseTime(r)
	if err != nil {
		webutils.WriteError(w, errors.Wrapf(err, "Invalid time"))
		return
	}
	binary := r.URL.Query().Get("binary") != ""

	s.lock.Lock()
	doc, err := gltfexport.Export(s.stage, t)
	s.lock.Unlock()
	if err != nil {
		webutils.WriteError(w, err)
		return
	}

	var buf bytes.Buffer
	name := "stage.gltf"
	if binary {
		name = "stage.glb"
		err = gltfutils.ExportBinary(&buf, doc)
	} else {
		err = gltfutils.ExportJSON(&buf, doc)
	}
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	webutils.WriteFile(w, &buf, name)
}

// newCommand builds a command for req. The caller holds the lock.
func (s *Server) newCommand(req *jTranslate) (*command.Translate, error) {
	path := sdf.Path(req.Path)
	if err := sdf.ValidatePath(path); err != nil {
		return nil, err
	}
	kind := command.KindTranslate
	if req.Kind != "" {
		var err error
		if kind, err = command.ParseKind(req.Kind); err != nil {
			return nil, err
		}
	}
	t, err := usd.ParseTimeCode(req.Time)
	if err != nil {
		return nil, errors.Wrapf(err, "Invalid time")
	}
	c := command.New(command.Item{Stage: s.stage, Path: path}, kind, t)
	if c.State() == command.StateFailed {
		return nil, c.Err()
	}
	return c, nil
}

func (s *Server) HandlerActionTranslate(w http.ResponseWriter, r *http.Request) {
	var req jTranslate
	if err := webutils.ReadJson(r, &req); err != nil {
		webutils.WriteError(w, err)
		return
	}
	space, err := parseSpace(req.Space)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	if config.DebugManipulators() {
		utils.LogDump("[web] translate ", req)
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	c, err := s.newCommand(&req)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	if err := c.Apply(mgl64.Vec3{req.X, req.Y, req.Z}, space); err != nil {
		// drops an op the command may have created
		c.Undo()
		webutils.WriteError(w, err)
		return
	}
	s.history.Push(c)
	s.status.Edit(req.Path, "Moved %s to %v", c.OpName(), c.CurrentValue())
	webutils.WriteJson(w, commandInfo(c))
}

func (s *Server) HandlerActionEditTarget(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Layer string `json:"layer"`
	}
	if err := webutils.ReadJson(r, &req); err != nil {
		webutils.WriteError(w, err)
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.setEditTarget(req.Layer); err != nil {
		webutils.WriteError(w, err)
		return
	}
	s.status.Info("Edit target is %s", req.Layer)
	webutils.WriteJson(w, map[string]string{"editTarget": req.Layer})
}

func (s *Server) HandlerActionUndo(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	defer s.lock.Unlock()

	ok := s.history.Undo()
	if ok {
		s.status.Edit("", "Undo")
	}
	webutils.WriteJson(w, map[string]bool{"done": ok, "canUndo": s.history.CanUndo(), "canRedo": s.history.CanRedo()})
}

func (s *Server) HandlerActionRedo(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	defer s.lock.Unlock()

	ok := s.history.Redo()
	if ok {
		s.status.Edit("", "Redo")
	}
	webutils.WriteJson(w, map[string]bool{"done": ok, "canUndo": s.history.CanUndo(), "canRedo": s.history.CanRedo()})
}

// HandlerActionScript runs an edit script posted as the request body. Each
// edit lands in the shared history.
func (s *Server) HandlerActionScript(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	text, err := io.ReadAll(r.Body)
	if err != nil {
		webutils.WriteError(w, errors.Wrapf(err, "Failed to read script"))
		return
	}
	statements, err := editscript.ParseScript(text)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	runner := editscript.NewRunner(s.stage, s.history)
	runner.OnEdit = func(c *command.Translate) {
		s.status.Edit(c.Item().Path.String(), "Moved %s to %v", c.OpName(), c.CurrentValue())
	}
	done, err := runner.Run(statements)
	result := map[string]interface{}{"done": done, "total": len(statements)}
	if err != nil {
		result["error"] = err.Error()
	}
	webutils.WriteJson(w, result)
}

func (s *Server) HandlerActionSave(w http.ResponseWriter, r *http.Request) {
	if s.stagePath == "" {
		webutils.WriteError(w, errors.New("Stage was not opened from a file"))
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.stage.Save(s.stagePath); err != nil {
		webutils.WriteErrorStatus(w, http.StatusInternalServerError, err)
		return
	}
	log.Printf("[web] Saved stage to %q", s.stagePath)
	s.status.Info("Saved %s", s.stagePath)
	webutils.WriteJson(w, map[string]string{"saved": s.stagePath})
}
