// Package biz 提供对话服务的业务逻辑层。
//
// 每一轮问答严格按顺序经过以下组件：
//   - Retriever: 问题嵌入与相似段落检索
//   - Compose: 用系统策略和检索到的段落组装 prompt
//   - Generator: 调用 Chat 供应商生成原始回答
//   - Sanitize: 清理原始回答
//   - Session: 追加本轮的用户与助手消息
//
// ChatService 组合以上组件并实现单轮状态机，Indexer 负责离线构建段落索引。
package biz
