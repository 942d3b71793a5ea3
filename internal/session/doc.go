// Package session — токены сессии каталогизатора.
//
// API выдаёт токен при входе и кладёт его в cookie sessionToken.
// Токен передаётся в каждой task, worker расшифровывает его и
// обращается к API каталога от имени каталогизатора.
package session
