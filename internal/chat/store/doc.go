// Package store 提供对话服务的段落索引存储层。
//
// 索引在启动时加载一次，之后只读。支持两种后端：
// 目录中的 index.json（加载到内存后暴力余弦检索）和 Milvus 集合。
package store
