package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jimyag/netrca/internal/netrca/entity"
	"github.com/jimyag/netrca/internal/netrca/report"
	"github.com/jimyag/netrca/pkg/apierror"
	"github.com/jimyag/netrca/pkg/batfish"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// 健康检查状态
const (
	HealthReachable   = "reachable"
	HealthUnreachable = "unreachable"
)

// tool 目录中的一个 RCA 工具：向后端提问并把表格归一化为文本
type tool struct {
	name        string
	description string
	run         func(ctx context.Context, sess batfish.Session) (string, error)
}

// catalog 固定且封闭，顺序即对外展示顺序
var catalog = []tool{
	{
		name:        "get_device_os_inventory",
		description: "Group every device in the snapshot by its configuration format (OS platform / vendor).",
		run: func(ctx context.Context, sess batfish.Session) (string, error) {
			nodes, err := sess.Answer(ctx, batfish.NodeProperties("Configuration_Format"))
			if err != nil {
				return "", err
			}
			return report.DeviceOSInventory(nodes)
		},
	},
	{
		name:        "get_logical_topology_with_mtu",
		description: "Derive the L3 adjacency map by grouping active interfaces into shared subnets, with MTU per interface and MTU mismatch warnings.",
		run: func(ctx context.Context, sess batfish.Session) (string, error) {
			ifaces, err := sess.Answer(ctx, batfish.InterfaceProperties("Primary_Address,Active,MTU"))
			if err != nil {
				return "", err
			}
			ospf, err := sess.Answer(ctx, batfish.OSPFInterfaceConfiguration())
			if err != nil {
				return "", err
			}
			return report.LogicalTopology(ifaces, ospf)
		},
	},
	{
		name:        "get_enriched_topology",
		description: "L3 topology annotated with OSPF session health per link. Healthy subnets are summarised, failing sessions carry a diagnosis hint.",
		run: func(ctx context.Context, sess batfish.Session) (string, error) {
			ifaces, err := sess.Answer(ctx, batfish.InterfaceProperties("Primary_Address,Active,MTU,Interface_Type"))
			if err != nil {
				return "", err
			}
			ospfIfaces, err := sess.Answer(ctx, batfish.OSPFInterfaceConfiguration())
			if err != nil {
				return "", err
			}
			ospfSessions, err := sess.Answer(ctx, batfish.OSPFSessionCompatibility())
			if err != nil {
				return "", err
			}
			return report.EnrichedTopology(ifaces, ospfIfaces, ospfSessions)
		},
	},
	{
		name:        "get_ospf_failures",
		description: "List OSPF adjacencies that are not ESTABLISHED, grouped by device, with the compatibility status reported by the simulation.",
		run: func(ctx context.Context, sess batfish.Session) (string, error) {
			sessions, err := sess.Answer(ctx, batfish.OSPFSessionCompatibility())
			if err != nil {
				return "", err
			}
			return report.OSPFFailures(sessions)
		},
	},
	{
		name:        "get_bgp_failures",
		description: "List BGP peerings whose configured status is not UNIQUE_MATCH, grouped by device.",
		run: func(ctx context.Context, sess batfish.Session) (string, error) {
			sessions, err := sess.Answer(ctx, batfish.BGPSessionCompatibility())
			if err != nil {
				return "", err
			}
			return report.BGPFailures(sessions)
		},
	},
	{
		name:        "get_undefined_references",
		description: "Find structures (ACLs, route-maps, prefix-lists) that are referenced in a configuration but never defined.",
		run: func(ctx context.Context, sess batfish.Session) (string, error) {
			refs, err := sess.Answer(ctx, batfish.UndefinedReferences())
			if err != nil {
				return "", err
			}
			return report.UndefinedReferences(refs)
		},
	},
	{
		name:        "get_unused_structures",
		description: "Find structures that are defined but never referenced.",
		run: func(ctx context.Context, sess batfish.Session) (string, error) {
			unused, err := sess.Answer(ctx, batfish.UnusedStructures())
			if err != nil {
				return "", err
			}
			return report.UnusedStructures(unused)
		},
	},
	{
		name:        "get_acl_shadowing",
		description: "Find ACL lines that can never match because earlier lines shadow them.",
		run: func(ctx context.Context, sess batfish.Session) (string, error) {
			lines, err := sess.Answer(ctx, batfish.FilterLineReachability())
			if err != nil {
				return "", err
			}
			return report.ACLShadowing(lines)
		},
	},
	{
		name:        "get_routing_loop_detection",
		description: "Detect data-plane forwarding loops and print the looping hop path.",
		run: func(ctx context.Context, sess batfish.Session) (string, error) {
			loops, err := sess.Answer(ctx, batfish.DetectLoops())
			if err != nil {
				return "", err
			}
			return report.RoutingLoops(loops)
		},
	},
}

func lookupTool(name string) (tool, bool) {
	for _, t := range catalog {
		if t.name == name {
			return t, true
		}
	}
	return tool{}, false
}

// ToolNames 目录中的工具名，按目录顺序
func ToolNames() []string {
	names := make([]string, 0, len(catalog))
	for _, t := range catalog {
		names = append(names, t.name)
	}
	return names
}

// SnapshotGetter 工具分发只需要按 owner 查询快照
type SnapshotGetter interface {
	Get(ctx context.Context, ownerID, id string) (*entity.Snapshot, error)
}

// ToolService RCA 工具分发
type ToolService struct {
	snapshots SnapshotGetter
	newClient ClientFactory
	network   string
	host      string
	port      int
}

// NewToolService 创建工具分发服务，host 和 port 只用于健康检查的回显
func NewToolService(snapshots SnapshotGetter, newClient ClientFactory, network, host string, port int) *ToolService {
	return &ToolService{
		snapshots: snapshots,
		newClient: newClient,
		network:   network,
		host:      host,
		port:      port,
	}
}

// ListTools 返回目录中的全部工具名
func (s *ToolService) ListTools() []string {
	return ToolNames()
}

// RunTool 在快照上执行单个工具
func (s *ToolService) RunTool(ctx context.Context, ownerID, snapshotID, toolName string) (string, error) {
	t, ok := lookupTool(toolName)
	if !ok {
		return "", apierror.WrapError(apierror.ErrInvalidTool,
			fmt.Sprintf("Unknown tool '%s'. Valid tools: %v", toolName, ToolNames()), nil)
	}

	sess, err := s.bind(ctx, ownerID, snapshotID)
	if err != nil {
		return "", err
	}
	return s.execute(ctx, t, sess, snapshotID)
}

// RunAllTools 并发执行目录中的全部工具
// 返回值每个工具恰好一项，失败的工具值为错误文本，不会整体失败
func (s *ToolService) RunAllTools(ctx context.Context, ownerID, snapshotID string) (map[string]string, error) {
	results := make(map[string]string, len(catalog))
	err := s.StreamAllTools(ctx, ownerID, snapshotID, func(name, out string, err error) {
		if err != nil {
			out = err.Error()
		}
		results[name] = out
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// StreamAllTools 并发执行全部工具，每个工具完成时回调 emit
// emit 串行调用，返回前每个工具恰好回调一次；只有绑定快照失败时返回错误
func (s *ToolService) StreamAllTools(ctx context.Context, ownerID, snapshotID string, emit func(name, result string, err error)) error {
	sess, err := s.bind(ctx, ownerID, snapshotID)
	if err != nil {
		return err
	}

	var mu sync.Mutex
	g, gCtx := errgroup.WithContext(ctx)
	for _, t := range catalog {
		t := t
		g.Go(func() error {
			out, err := s.execute(gCtx, t, sess, snapshotID)
			mu.Lock()
			emit(t.name, out, err)
			mu.Unlock()
			// 单个工具失败不取消其他工具
			return nil
		})
	}
	return g.Wait()
}

// ToolDefinitions 给 agent 层的函数调用定义
func (s *ToolService) ToolDefinitions() []entity.ToolDefinition {
	snapshotIDParam := map[string]any{
		"type":        "string",
		"description": "The opaque snapshot ID returned by refresh_snapshot.",
	}
	return []entity.ToolDefinition{
		{
			Name: "refresh_snapshot",
			Description: "Create or refresh a named snapshot of the current device configurations and load it " +
				"into the simulation backend. Returns the opaque snapshot ID used by every other tool.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"snapshot_name": map[string]any{
						"type":        "string",
						"description": "Incident/tenant label e.g. 'incident_001'.",
					},
					"configs_root": map[string]any{
						"type":        "string",
						"description": "Override config root path (server-side).",
					},
				},
				"required": []string{"snapshot_name"},
			},
		},
		{
			Name: "get_snapshot",
			Description: "Retrieve the full metadata record for a previously created snapshot by its opaque ID. " +
				"Returns status, device count, device list, timestamps, and any error messages. " +
				"Useful for checking if a snapshot is active before running tools.",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{"snapshot_id": snapshotIDParam},
				"required":   []string{"snapshot_id"},
			},
		},
		{
			Name:        "run_batfish_tool",
			Description: runToolDescription(),
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"snapshot_id": snapshotIDParam,
					"batfish_tool_name": map[string]any{
						"type":        "string",
						"description": "The name of the RCA tool to run.",
						"enum":        ToolNames(),
					},
				},
				"required": []string{"snapshot_id", "batfish_tool_name"},
			},
		},
		{
			Name: "run_all_batfish_tools",
			Description: "Run every RCA tool against the snapshot concurrently and return one result per tool. " +
				"Use this for a broad first pass when the fault domain is unknown.",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{"snapshot_id": snapshotIDParam},
				"required":   []string{"snapshot_id"},
			},
		},
	}
}

func runToolDescription() string {
	desc := "Run a single named RCA (Root Cause Analysis) tool against the loaded Batfish snapshot. " +
		"Each tool performs a specific type of network analysis using formal data-plane simulation. " +
		"Use this for targeted analysis when you know exactly what to investigate. " +
		"Available tools:"
	for _, t := range catalog {
		desc += "\n  - " + t.name + ": " + t.description
	}
	return desc
}

// CheckHealth 探测后端是否可达，不可达时 Status 为 unreachable 且 error 非空
func (s *ToolService) CheckHealth(ctx context.Context) (*entity.HealthResponse, error) {
	resp := &entity.HealthResponse{
		Status:  HealthReachable,
		Host:    s.host,
		Port:    s.port,
		Network: s.network,
	}

	client, err := s.newClient()
	if err == nil {
		err = client.Health(ctx)
	}
	if err != nil {
		resp.Status = HealthUnreachable
		resp.Error = err.Error()
		zerolog.Ctx(ctx).Warn().Err(err).Str("host", s.host).Msg("Batfish health check failed")
		return resp, apierror.WrapError(apierror.ErrBackendUnreachable,
			fmt.Sprintf("Batfish at %s:%d is unreachable.", s.host, s.port), err)
	}
	return resp, nil
}

// bind 校验归属后绑定到快照的后端会话
func (s *ToolService) bind(ctx context.Context, ownerID, snapshotID string) (batfish.Session, error) {
	snap, err := s.snapshots.Get(ctx, ownerID, snapshotID)
	if err != nil {
		return nil, err
	}

	client, err := s.newClient()
	if err != nil {
		return nil, apierror.WrapError(apierror.ErrBackendUnreachable, "Failed to create Batfish client", err)
	}
	sess, err := client.Session(ctx, s.network, snap.IsolationKey)
	if err != nil {
		return nil, sessionError(snapshotID, err)
	}
	return sess, nil
}

func (s *ToolService) execute(ctx context.Context, t tool, sess batfish.Session, snapshotID string) (string, error) {
	logger := zerolog.Ctx(ctx)
	start := time.Now()

	out, err := t.run(ctx, sess)
	if err != nil {
		err = sessionError(snapshotID, err)
	}

	toolRunsTotal.WithLabelValues(t.name, resultLabel(err)).Inc()
	toolDuration.WithLabelValues(t.name).Observe(time.Since(start).Seconds())

	if err != nil {
		logger.Error().Err(err).
			Str("tool", t.name).
			Str("snapshot_id", snapshotID).
			Str("snapshot", sess.Snapshot()).
			Msg("RCA tool failed")
		return "", err
	}
	logger.Debug().
		Str("tool", t.name).
		Dur("duration", time.Since(start)).
		Msg("RCA tool finished")
	return out, nil
}

// sessionError 把后端错误映射为对外错误码
func sessionError(snapshot string, err error) error {
	if _, ok := apierror.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, batfish.ErrSnapshotNotFound):
		return apierror.WrapError(apierror.ErrSnapshotNotLoaded,
			fmt.Sprintf("Snapshot %s not loaded in Batfish. Call refresh on the snapshot first.", snapshot), err)
	case errors.Is(err, batfish.ErrUnreachable):
		return apierror.WrapError(apierror.ErrBackendUnreachable, "Batfish is unreachable.", err)
	default:
		return apierror.WrapError(apierror.ErrToolExecutionFailed, fmt.Sprintf("Tool execution failed: %v", err), err)
	}
}
