package batfish

// Question 一个 Batfish 问题
// Name 同时作为问题实例名前缀，Class 为 Batfish 内部的问题类
type Question struct {
	Name       string
	Class      string
	Parameters map[string]any
}

func (q Question) payload(instance string) map[string]any {
	body := make(map[string]any, len(q.Parameters)+3)
	for k, v := range q.Parameters {
		body[k] = v
	}
	body["class"] = q.Class
	body["differential"] = false
	body["instance"] = map[string]any{
		"instanceName": instance,
	}
	return body
}

const questionPackage = "org.batfish.question."

// NodeProperties 节点属性，properties 为空时返回全部属性
func NodeProperties(properties string) Question {
	return Question{
		Name:       "nodeProperties",
		Class:      questionPackage + "nodeproperties.NodePropertiesQuestion",
		Parameters: optional("properties", properties),
	}
}

// InterfaceProperties 接口属性
func InterfaceProperties(properties string) Question {
	return Question{
		Name:       "interfaceProperties",
		Class:      questionPackage + "interfaceproperties.InterfacePropertiesQuestion",
		Parameters: optional("properties", properties),
	}
}

// OSPFInterfaceConfiguration OSPF 接口配置
func OSPFInterfaceConfiguration() Question {
	return Question{
		Name:  "ospfInterfaceConfiguration",
		Class: questionPackage + "ospfinterface.OspfInterfaceConfigurationQuestion",
	}
}

// OSPFSessionCompatibility OSPF 会话兼容性
func OSPFSessionCompatibility() Question {
	return Question{
		Name:  "ospfSessionCompatibility",
		Class: questionPackage + "ospfsession.OspfSessionCompatibilityQuestion",
	}
}

// BGPSessionCompatibility BGP 会话兼容性
func BGPSessionCompatibility() Question {
	return Question{
		Name:  "bgpSessionCompatibility",
		Class: questionPackage + "bgpsessionstatus.BgpSessionCompatibilityQuestion",
	}
}

// UndefinedReferences 引用了但未定义的结构
func UndefinedReferences() Question {
	return Question{
		Name:  "undefinedReferences",
		Class: questionPackage + "UndefinedReferencesQuestionPlugin$UndefinedReferencesQuestion",
	}
}

// UnusedStructures 定义了但未使用的结构
func UnusedStructures() Question {
	return Question{
		Name:  "unusedStructures",
		Class: questionPackage + "UnusedStructuresQuestionPlugin$UnusedStructuresQuestion",
	}
}

// FilterLineReachability ACL 行可达性
func FilterLineReachability() Question {
	return Question{
		Name:  "filterLineReachability",
		Class: questionPackage + "filterlinereachability.FilterLineReachabilityQuestion",
	}
}

// DetectLoops 数据面转发环路
func DetectLoops() Question {
	return Question{
		Name:  "detectLoops",
		Class: questionPackage + "traceroute.DetectLoopsQuestion",
	}
}

func optional(key, value string) map[string]any {
	if value == "" {
		return nil
	}
	return map[string]any{key: value}
}
